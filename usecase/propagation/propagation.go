package propagation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/productsync/domain"
	"github.com/fastygo/productsync/internal/metrics"
	"github.com/fastygo/productsync/pkg/logger"
	"github.com/fastygo/productsync/repository"
)

// Config bounds the pipeline's calls to the CRM.
type Config struct {
	PageSize       int
	BatchSize      int
	Concurrency    int
	MaxSearchPages int
}

type UseCase struct {
	deals     repository.DealRepository
	lineItems repository.LineItemRepository
	ledger    repository.DeliveryLedger
	logger    *zap.Logger
	cfg       Config
}

func New(
	deals repository.DealRepository,
	lineItems repository.LineItemRepository,
	ledger repository.DeliveryLedger,
	logger *zap.Logger,
	cfg Config,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxSearchPages <= 0 {
		cfg.MaxSearchPages = 100
	}
	return &UseCase{
		deals:     deals,
		lineItems: lineItems,
		ledger:    ledger,
		logger:    logger,
		cfg:       cfg,
	}
}

// HandleDelivery validates a raw webhook body and propagates the first change event.
// Empty intermediate results complete successfully with zero updates.
func (uc *UseCase) HandleDelivery(ctx context.Context, body []byte) (domain.Outcome, error) {
	log := logger.WithRequestID(ctx, uc.logger)
	outcome := domain.Outcome{State: domain.StateReceived, Stage: domain.StateReceived}

	event, ignored, err := domain.ParseDelivery(body)
	if err != nil {
		log.Warn("invalid webhook request body", zap.Error(err))
		return fail(outcome, err)
	}
	outcome.Stage = domain.StateValidated
	outcome.ProductID = event.ObjectID
	outcome.Ignored = ignored

	log = log.With(logger.EventFields(event)...)
	if ignored > 0 {
		log.Warn("delivery carries several events, only the first is processed", zap.Int("ignored_events", ignored))
	}

	if uc.alreadyCompleted(ctx, event, log) {
		metrics.DuplicateDeliveriesTotal.Inc()
		log.Info("delivery already completed, skipping")
		outcome.Duplicate = true
		return complete(outcome), nil
	}

	outcome, err = uc.propagate(ctx, event, outcome, log)
	if err != nil {
		log.Error("propagation failed", zap.String("stage", string(domain.FailedStage(err))), zap.Error(err))
		return outcome, err
	}

	uc.recordCompleted(ctx, event, outcome, log)
	log.Info("updates completed successfully", zap.Int("updated", outcome.Updated))
	return outcome, nil
}

func (uc *UseCase) propagate(ctx context.Context, event domain.ProductChangeEvent, outcome domain.Outcome, log *zap.Logger) (domain.Outcome, error) {
	outcome.State = domain.StateResolving
	outcome.Stage = domain.StateResolving

	started := time.Now()
	deals, err := uc.FindOpenDeals(ctx)
	if err != nil {
		return fail(outcome, domain.StageError(domain.StateResolving, "find open deals", err))
	}
	outcome.OpenDeals = deals.Len()
	if deals.Empty() {
		metrics.ObserveStage(domain.StateResolving, started)
		return uc.shortCircuit(outcome, log, "no open deals found")
	}

	lineItems, err := uc.ResolveLineItems(ctx, deals)
	metrics.ObserveStage(domain.StateResolving, started)
	if err != nil {
		return fail(outcome, domain.StageError(domain.StateResolving, "resolve line items", err))
	}
	outcome.LineItems = lineItems.Len()
	if lineItems.Empty() {
		return uc.shortCircuit(outcome, log, "open deals have no line items")
	}
	log.Debug("line items resolved", zap.Int("open_deals", outcome.OpenDeals), zap.Int("line_items", outcome.LineItems))

	outcome.State = domain.StateMatching
	outcome.Stage = domain.StateMatching
	started = time.Now()
	matched, err := uc.MatchProduct(ctx, lineItems, event.ObjectID)
	metrics.ObserveStage(domain.StateMatching, started)
	if err != nil {
		return fail(outcome, domain.StageError(domain.StateMatching, "match line items to product", err))
	}
	outcome.Matched = matched.Len()
	if matched.Empty() {
		return uc.shortCircuit(outcome, log, "no line items reference the product")
	}

	outcome.State = domain.StateUpdating
	outcome.Stage = domain.StateUpdating
	started = time.Now()
	updated, err := uc.UpdateDescriptions(ctx, matched, event.PropertyValue)
	metrics.ObserveStage(domain.StateUpdating, started)
	if err != nil {
		return fail(outcome, domain.StageError(domain.StateUpdating, "update line item descriptions", err))
	}
	outcome.Updated = updated
	metrics.LineItemsUpdatedTotal.Add(float64(updated))

	return complete(outcome), nil
}

// FindOpenDeals pages through the deal search until the CRM stops returning a cursor.
func (uc *UseCase) FindOpenDeals(ctx context.Context) (domain.DealSet, error) {
	found := domain.NewIDSet[domain.DealID]()
	cursors := make(map[string]struct{})
	after := ""

	for page := 1; ; page++ {
		if page > uc.cfg.MaxSearchPages {
			return domain.DealSet{}, fmt.Errorf("deal search still paging after %d pages", uc.cfg.MaxSearchPages)
		}

		result, err := uc.deals.SearchDeals(ctx, domain.DealSearch{
			ExcludedStages: domain.ClosedDealStages,
			MinLineItems:   0,
			Limit:          uc.cfg.PageSize,
			After:          after,
		})
		if err != nil {
			return domain.DealSet{}, fmt.Errorf("search deals page %d: %w", page, err)
		}
		for _, id := range result.IDs {
			found.Add(id)
		}

		if result.Next == "" {
			return found, nil
		}
		if _, repeated := cursors[result.Next]; repeated {
			return domain.DealSet{}, fmt.Errorf("deal search returned cursor %q twice", result.Next)
		}
		cursors[result.Next] = struct{}{}
		after = result.Next
	}
}

// ResolveLineItems unions the line items of every deal. Lookups run concurrently
// up to the configured limit; the first failure cancels the rest.
func (uc *UseCase) ResolveLineItems(ctx context.Context, deals domain.DealSet) (domain.LineItemSet, error) {
	resolved := domain.NewIDSet[domain.LineItemID]()
	if deals.Empty() {
		return resolved, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.Concurrency)

	for _, dealID := range deals.Sorted() {
		g.Go(func() error {
			ids, err := uc.deals.LineItemIDs(gctx, dealID)
			if err != nil {
				return fmt.Errorf("line items of deal %s: %w", dealID, err)
			}
			perDeal := domain.NewIDSet(ids...)

			mu.Lock()
			defer mu.Unlock()
			resolved.Union(perDeal)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.LineItemSet{}, err
	}
	return resolved, nil
}

// MatchProduct keeps the line items whose product reference equals product.
// Line items without a reference never match.
func (uc *UseCase) MatchProduct(ctx context.Context, lineItems domain.LineItemSet, product domain.ProductID) (domain.LineItemSet, error) {
	matched := domain.NewIDSet[domain.LineItemID]()
	if product == "" {
		return matched, nil
	}

	for _, batch := range lineItems.Chunk(uc.cfg.BatchSize) {
		products, err := uc.lineItems.ProductIDs(ctx, batch)
		if err != nil {
			return domain.LineItemSet{}, fmt.Errorf("read product references: %w", err)
		}
		for _, id := range batch {
			if ref := products[id]; ref != "" && ref == product {
				matched.Add(id)
			}
		}
	}
	return matched, nil
}

// UpdateDescriptions writes description on every line item and returns how many were written.
// Any failed batch fails the whole update.
func (uc *UseCase) UpdateDescriptions(ctx context.Context, lineItems domain.LineItemSet, description string) (int, error) {
	updated := 0
	for _, batch := range lineItems.Chunk(uc.cfg.BatchSize) {
		if err := uc.lineItems.UpdateDescriptions(ctx, batch, description); err != nil {
			return 0, fmt.Errorf("batch update of %d line items: %w", len(batch), err)
		}
		updated += len(batch)
	}
	return updated, nil
}

func (uc *UseCase) shortCircuit(outcome domain.Outcome, log *zap.Logger, reason string) (domain.Outcome, error) {
	metrics.ShortCircuitsTotal.WithLabelValues(string(outcome.Stage)).Inc()
	log.Info(reason,
		zap.String("stage", string(outcome.Stage)),
		zap.Int("open_deals", outcome.OpenDeals),
		zap.Int("line_items", outcome.LineItems),
		zap.Int("matched", outcome.Matched),
	)
	return complete(outcome), nil
}

func (uc *UseCase) alreadyCompleted(ctx context.Context, event domain.ProductChangeEvent, log *zap.Logger) bool {
	key := event.DeliveryKey()
	if uc.ledger == nil || key == "" {
		return false
	}
	seen, err := uc.ledger.Seen(ctx, key)
	if err != nil {
		log.Warn("delivery ledger lookup failed", zap.Error(err))
		return false
	}
	return seen
}

func (uc *UseCase) recordCompleted(ctx context.Context, event domain.ProductChangeEvent, outcome domain.Outcome, log *zap.Logger) {
	key := event.DeliveryKey()
	if uc.ledger == nil || key == "" {
		return
	}
	if err := uc.ledger.Record(ctx, domain.Delivery{
		Key:         key,
		ProductID:   event.ObjectID,
		Updated:     outcome.Updated,
		CompletedAt: outcome.FinishedAt,
	}); err != nil {
		log.Warn("failed to record delivery", zap.Error(err))
	}
}

func complete(outcome domain.Outcome) domain.Outcome {
	outcome.State = domain.StateCompleted
	outcome.FinishedAt = time.Now().UTC()
	return outcome
}

func fail(outcome domain.Outcome, err error) (domain.Outcome, error) {
	outcome.State = domain.StateFailed
	outcome.FinishedAt = time.Now().UTC()
	return outcome, err
}
