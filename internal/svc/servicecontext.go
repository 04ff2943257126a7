package svc

import (
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"

	"stocketl/internal/config"
	"stocketl/pkg/journal"
	"stocketl/pkg/normalize"
	"stocketl/pkg/pipeline"
	providerpkg "stocketl/pkg/provider"
	_ "stocketl/pkg/provider/alphavantage"
	"stocketl/pkg/provider/archive"
	"stocketl/pkg/sink/csvsink"
	"stocketl/pkg/sink/sqlsink"
)

type ServiceContext struct {
	Config config.Config

	ProviderConfig *providerpkg.Config
	Provider       providerpkg.Client
	Normalizer     *normalize.Normalizer
	Merger         *pipeline.Merger
	Sinks          []pipeline.Sink
	Journal        *journal.Writer
	Runner         *pipeline.Runner
}

func NewServiceContext(c config.Config) (*ServiceContext, error) {
	svc := &ServiceContext{Config: c}

	providerCfg := c.Provider.Value
	if providerCfg == nil {
		return nil, fmt.Errorf("svc: provider config not loaded")
	}
	svc.ProviderConfig = providerCfg

	client, err := buildClient(c, providerCfg)
	if err != nil {
		return nil, err
	}
	svc.Provider = client

	var period string
	if pc, ok := providerCfg.Providers[providerCfg.Default]; ok {
		period = pc.StatementPeriod
	}
	normOpts := []normalize.Option{normalize.WithStatementPeriod(period)}
	if len(c.Placeholders) > 0 {
		normOpts = append(normOpts, normalize.WithPlaceholders(c.Placeholders...))
	}
	svc.Normalizer = normalize.New(normOpts...)

	var kindPacer pipeline.Pacer = pipeline.FixedDelay(c.Pacing.KindDelay)
	if c.Pacing.KindDelay == 0 {
		kindPacer = pipeline.NoDelay
	}
	opts := []pipeline.Option{
		pipeline.WithNormalizer(svc.Normalizer),
		pipeline.WithKinds(c.ParsedKinds()...),
		pipeline.WithKindPacer(kindPacer),
		pipeline.WithFailurePolicy(c.FailurePolicy()),
	}
	if budget := pipeline.NewRequestBudget(c.Pacing.RequestsPerMinute, c.Pacing.Burst); budget != nil {
		opts = append(opts, pipeline.WithRequestPacer(budget))
	}
	svc.Merger = pipeline.NewMerger(client, c.Securities(), opts...)

	sinks, err := buildSinks(c)
	if err != nil {
		return nil, err
	}
	svc.Sinks = sinks

	if c.Journal.Dir != "" {
		svc.Journal = journal.NewWriter(c.Journal.Dir)
		svc.Runner = pipeline.NewRunner(svc.Merger, sinks, svc.Journal)
	} else {
		svc.Runner = pipeline.NewRunner(svc.Merger, sinks, nil)
	}
	return svc, nil
}

// buildClient returns the default provider client. In the test environment an
// archive directory is replayed instead of calling the live provider; outside
// it, the archive directory records every response.
func buildClient(c config.Config, providerCfg *providerpkg.Config) (providerpkg.Client, error) {
	if c.IsTestEnv() && c.Archive.Dir != "" {
		logx.Infof("svc: test env, replaying provider responses from %s", c.Archive.Dir)
		return archive.NewReplay(c.Archive.Dir), nil
	}
	client, err := providerCfg.BuildDefault()
	if err != nil {
		return nil, fmt.Errorf("svc: build provider: %w", err)
	}
	if c.Archive.Dir != "" {
		client = archive.NewRecorder(client, c.Archive.Dir)
	}
	return client, nil
}

func buildSinks(c config.Config) ([]pipeline.Sink, error) {
	var sinks []pipeline.Sink
	if c.Export.Dir != "" {
		opts := []csvsink.Option{csvsink.WithDelimiter(c.DelimiterRune())}
		for name, file := range c.Export.FileNames {
			kind, err := providerpkg.ParseKind(name)
			if err != nil {
				return nil, fmt.Errorf("svc: export file names: %w", err)
			}
			opts = append(opts, csvsink.WithFileName(kind, file))
		}
		sinks = append(sinks, csvsink.New(c.Export.Dir, opts...))
	}
	if c.Database.DSN != "" {
		opts := []sqlsink.Option{
			sqlsink.WithSchema(c.Database.Schema),
			sqlsink.WithBatchRows(c.Database.BatchRows),
		}
		for name, rel := range c.Database.Relations {
			kind, err := providerpkg.ParseKind(name)
			if err != nil {
				return nil, fmt.Errorf("svc: database relations: %w", err)
			}
			opts = append(opts, sqlsink.WithRelation(kind, rel))
		}
		s, err := sqlsink.Open(c.Database.Dialect, c.Database.DSN, opts...)
		if err != nil {
			return nil, fmt.Errorf("svc: open database sink: %w", err)
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("svc: no sink configured")
	}
	return sinks, nil
}
