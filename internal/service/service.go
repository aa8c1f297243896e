package service

import (
	"crypto-signals/config"
	"crypto-signals/internal/repository"
	"crypto-signals/internal/strategy"
	"crypto-signals/pkg/cache"
	"crypto-signals/pkg/logger"
)

type Service struct {
	GeneratorService   SignalGeneratorService
	DistributorService SignalDistributorService
	StatsService       StatsService
	Ranker             EligibilityRanker
	AutoTradeWorker    *AutoTradeWorker
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	notifier NotificationSink,
	inmemoryCache cache.Cache,
) *Service {
	ranker := NewEligibilityRanker(log, repo.SubscriberRepo, repo.ReceiptRepo)
	distributor := NewSignalDistributor(cfg, log, repo.SignalRepo, repo.ReceiptRepo, repo.UnitOfWork, ranker, notifier)
	generator := NewSignalGenerator(cfg, log, repo.SignalRepo, distributor, inmemoryCache)
	stats := NewStatsService(log, repo.SignalRepo, repo.ReceiptRepo, repo.SubscriberRepo)
	analyzer := strategy.NewSurgeAnalyzer()
	worker := NewAutoTradeWorker(cfg, log, repo, ranker, distributor, analyzer, notifier, inmemoryCache)

	return &Service{
		GeneratorService:   generator,
		DistributorService: distributor,
		StatsService:       stats,
		Ranker:             ranker,
		AutoTradeWorker:    worker,
	}
}
