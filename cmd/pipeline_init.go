package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nhigh-tools/deadline-cli/internal/classify"
	"github.com/nhigh-tools/deadline-cli/internal/pipeline"
	"github.com/nhigh-tools/deadline-cli/internal/sheet"
	"github.com/nhigh-tools/deadline-cli/pkg/gmail"
	"github.com/nhigh-tools/deadline-cli/pkg/openai"
)

// pipelineEnv holds the initialized store, clients and pipeline needed by the
// run/serve/cleanup commands.
type pipelineEnv struct {
	Store    sheet.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, the mail and model clients, the keyword
// classifier, and builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	mailClient := gmail.NewClient(cfg.Mail.Token)
	modelClient := openai.NewClient(cfg.OpenAI.Key, openai.WithBaseURL(cfg.OpenAI.BaseURL))

	classifier := classify.New()
	if cfg.Pipeline.KeywordRuleFile != "" {
		classifier, err = classify.NewFromFile(cfg.Pipeline.KeywordRuleFile)
		if err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "load keyword rules")
		}
		zap.L().Info("keyword rules loaded", zap.String("file", cfg.Pipeline.KeywordRuleFile))
	}

	p := pipeline.New(cfg, st, mailClient, modelClient, classifier)

	return &pipelineEnv{
		Store:    st,
		Pipeline: p,
	}, nil
}
