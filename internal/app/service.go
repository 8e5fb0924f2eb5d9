package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"tradejournal/config"
	"tradejournal/internal/analytics"
	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
	"tradejournal/internal/presets"
	"tradejournal/internal/risk"
	"tradejournal/internal/tradelog"
)

// TradeImporter rebuilds trade records from an external history.
type TradeImporter interface {
	Import(ctx context.Context, accountID, symbol string, start, end time.Time) ([]domain.TradeRecord, error)
}

// JournalService orchestrates the trade journal: the trade lifecycle,
// the trade log view, performance summaries and exchange imports.
type JournalService struct {
	cfg      *config.Config
	logger   ports.Logger
	repo     ports.TradeRepository
	importer TradeImporter // optional
	presets  *presets.Set  // optional
	calc     *risk.Calculator
	pipeline *tradelog.Pipeline
	newID    func() string
}

// NewJournalService creates a new application service instance. importer and
// presetSet may be nil; the operations needing them then fail with
// ports.ErrConfigurationError or ports.ErrNotFound.
func NewJournalService(
	cfg *config.Config,
	logger ports.Logger,
	repo ports.TradeRepository,
	importer TradeImporter,
	presetSet *presets.Set,
) (*JournalService, error) {

	// Validate dependencies
	if cfg == nil || logger == nil || repo == nil {
		return nil, fmt.Errorf("missing required dependencies for JournalService")
	}
	if cfg.AccountSize < 0 {
		return nil, fmt.Errorf("configuration AccountSize cannot be negative")
	}

	calc := risk.NewCalculator(risk.Config{AccountSize: cfg.AccountSize})
	return &JournalService{
		cfg:      cfg,
		logger:   logger,
		repo:     repo,
		importer: importer,
		presets:  presetSet,
		calc:     calc,
		pipeline: tradelog.NewPipeline(calc, tradelog.Options{
			PageSize:            cfg.PageSize,
			CaseSensitiveSearch: cfg.SearchCaseSensitive,
		}),
		newID: uuid.NewString,
	}, nil
}

// CloseRequest carries the outcome of a trade.
type CloseRequest struct {
	ActualExit    *float64
	ActualPL      float64
	MaxPossiblePL *float64
	DidHitTP      domain.TPStatus
}

// ImportResult counts what an import did with each fetched record.
type ImportResult struct {
	Fetched int
	Created int
	Updated int // previously open trades that have since closed
	Skipped int // already journaled
	Invalid int
}

// LogTrade validates and persists a new trade. The account defaults to the
// configured one and an ID is generated when empty.
func (s *JournalService) LogTrade(ctx context.Context, rec domain.TradeRecord) (*domain.TradeRecord, error) {
	op := "LogTrade"
	if rec.AccountID == "" {
		rec.AccountID = s.cfg.AccountID
	}
	if rec.ID == "" {
		rec.ID = s.newID()
	}
	rec.Normalize()
	rec = s.calc.Enrich(rec)

	if err := s.validate(ctx, op, &rec); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &rec); err != nil {
		s.logger.Error(ctx, err, op+": Failed to save trade", map[string]interface{}{"tradeID": rec.ID})
		return nil, fmt.Errorf("failed to save trade %s: %w", rec.ID, err)
	}
	s.logger.Info(ctx, op+": Trade logged", map[string]interface{}{
		"tradeID": rec.ID, "symbol": rec.Symbol, "direction": rec.Direction, "account": rec.AccountID,
	})
	return &rec, nil
}

// ExecuteRequest carries the fill of a planned trade. A non-nil StopLoss
// replaces the projected stop, so risk metrics follow the revised stop.
type ExecuteRequest struct {
	ActualEntry float64
	Quantity    *float64
	StopLoss    *float64
}

// ExecuteTrade records the actual entry of a planned trade.
func (s *JournalService) ExecuteTrade(ctx context.Context, id string, req ExecuteRequest) (*domain.TradeRecord, error) {
	op := "ExecuteTrade"
	rec, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.IsClosed() {
		return nil, fmt.Errorf("trade %s: %w", rec.ID, ports.ErrTradeAlreadyClosed)
	}

	entry := req.ActualEntry
	rec.ActualEntry = &entry
	if req.Quantity != nil {
		rec.Quantity = req.Quantity
	}
	if req.StopLoss != nil {
		rec.ProjectedSL = req.StopLoss
	}
	if err := s.validate(ctx, op, rec); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, rec); err != nil {
		s.logger.Error(ctx, err, op+": Failed to update trade", map[string]interface{}{"tradeID": rec.ID})
		return nil, fmt.Errorf("failed to update trade %s: %w", rec.ID, err)
	}
	fields := map[string]interface{}{"tradeID": rec.ID, "actualEntry": entry}
	if req.StopLoss != nil {
		fields["stopLoss"] = *req.StopLoss
	}
	s.logger.Info(ctx, op+": Trade executed", fields)
	return rec, nil
}

// CloseTrade records the outcome of an executed trade and derives its efficiency.
func (s *JournalService) CloseTrade(ctx context.Context, id string, req CloseRequest) (*domain.TradeRecord, error) {
	op := "CloseTrade"
	rec, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.IsClosed() {
		return nil, fmt.Errorf("trade %s: %w", rec.ID, ports.ErrTradeAlreadyClosed)
	}
	if !rec.IsExecuted() {
		return nil, fmt.Errorf("trade %s: %w", rec.ID, ports.ErrTradeNotExecuted)
	}

	pl := req.ActualPL
	rec.ActualExit = req.ActualExit
	rec.ActualPL = &pl
	rec.MaxPossiblePL = req.MaxPossiblePL
	rec.DidHitTP = req.DidHitTP
	if rec.DidHitTP == "" {
		rec.DidHitTP = domain.TPUnknown
	}
	*rec = s.calc.Enrich(*rec)

	if err := s.validate(ctx, op, rec); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, rec); err != nil {
		s.logger.Error(ctx, err, op+": Failed to update trade", map[string]interface{}{"tradeID": rec.ID})
		return nil, fmt.Errorf("failed to update trade %s: %w", rec.ID, err)
	}
	fields := map[string]interface{}{"tradeID": rec.ID, "actualPL": pl}
	if rec.Efficiency != nil {
		fields["efficiency"] = *rec.Efficiency
	}
	s.logger.Info(ctx, op+": Trade closed", fields)
	return rec, nil
}

// UpdateNotes replaces a trade's notes.
func (s *JournalService) UpdateNotes(ctx context.Context, id, notes string) (*domain.TradeRecord, error) {
	op := "UpdateNotes"
	rec, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Notes = notes
	if err := s.repo.Update(ctx, rec); err != nil {
		s.logger.Error(ctx, err, op+": Failed to update trade", map[string]interface{}{"tradeID": rec.ID})
		return nil, fmt.Errorf("failed to update trade %s: %w", rec.ID, err)
	}
	s.logger.Debug(ctx, op+": Notes updated", map[string]interface{}{"tradeID": rec.ID})
	return rec, nil
}

// DeleteTrade soft-deletes a trade; it disappears from logs and summaries.
func (s *JournalService) DeleteTrade(ctx context.Context, id string) error {
	op := "DeleteTrade"
	id, err := s.resolveID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		s.logger.Warn(ctx, op+": Failed to delete trade", map[string]interface{}{"tradeID": id, "error": err.Error()})
		return fmt.Errorf("failed to delete trade %s: %w", id, err)
	}
	s.logger.Info(ctx, op+": Trade deleted", map[string]interface{}{"tradeID": id})
	return nil
}

// TradeLog returns the requested page of accountID's trade log. An empty
// accountID covers every account.
func (s *JournalService) TradeLog(ctx context.Context, accountID string, q domain.Query) (tradelog.View, error) {
	records, err := s.records(ctx, accountID)
	if err != nil {
		return tradelog.View{}, err
	}
	return s.pipeline.Run(records, q), nil
}

// FilteredRows returns every row matching q's filter and search, sorted and unpaginated.
func (s *JournalService) FilteredRows(ctx context.Context, accountID string, q domain.Query) ([]tradelog.Row, error) {
	records, err := s.records(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Rows(records, q), nil
}

// Summary computes performance statistics over the trades matching q's
// filter and search. Pagination is ignored.
func (s *JournalService) Summary(ctx context.Context, accountID string, q domain.Query) (*analytics.PerformanceSummary, error) {
	rows, err := s.FilteredRows(ctx, accountID, q)
	if err != nil {
		return nil, err
	}
	return analytics.Summarize(tradesOf(rows), s.cfg.AccountSize), nil
}

// SymbolSummary is one instrument's performance.
type SymbolSummary struct {
	Symbol  string
	Summary *analytics.PerformanceSummary
}

// SummaryBySymbol splits Summary per symbol, ordered by symbol.
func (s *JournalService) SummaryBySymbol(ctx context.Context, accountID string, q domain.Query) ([]SymbolSummary, error) {
	rows, err := s.FilteredRows(ctx, accountID, q)
	if err != nil {
		return nil, err
	}

	bySymbol := make(map[string][]domain.TradeRecord)
	for _, r := range rows {
		bySymbol[r.Trade.Symbol] = append(bySymbol[r.Trade.Symbol], r.Trade)
	}
	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	out := make([]SymbolSummary, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, SymbolSummary{Symbol: sym, Summary: analytics.Summarize(bySymbol[sym], 0)})
	}
	return out, nil
}

// PresetQuery resolves a named preset into a query.
func (s *JournalService) PresetQuery(name string) (domain.Query, error) {
	if s.presets == nil {
		return domain.Query{}, fmt.Errorf("preset %q: no presets configured: %w", name, ports.ErrNotFound)
	}
	p, ok := s.presets.Get(name)
	if !ok {
		return domain.Query{}, fmt.Errorf("preset %q (available: %s): %w", name, strings.Join(s.presets.Names(), ", "), ports.ErrNotFound)
	}
	return p.Query(s.cfg.PageSize)
}

// ImportTrades pulls symbol's round trips in [start, end] from the exchange
// and journals them under accountID. Re-imports are idempotent; a trade
// imported while open is updated once it has closed.
func (s *JournalService) ImportTrades(ctx context.Context, accountID, symbol string, start, end time.Time) (ImportResult, error) {
	op := "ImportTrades"
	var result ImportResult
	if s.importer == nil {
		return result, fmt.Errorf("%s: no importer configured: %w", op, ports.ErrConfigurationError)
	}
	if accountID == "" {
		accountID = s.cfg.AccountID
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	records, err := s.importer.Import(ctx, accountID, symbol, start, end)
	if err != nil {
		s.logger.Error(ctx, err, op+": Import failed", map[string]interface{}{"symbol": symbol})
		return result, fmt.Errorf("import %s: %w", symbol, err)
	}
	result.Fetched = len(records)

	for i := range records {
		rec := &records[i]
		if err := rec.Validate(); err != nil {
			s.logger.Warn(ctx, op+": Skipping invalid imported trade", map[string]interface{}{"tradeID": rec.ID, "error": err.Error()})
			result.Invalid++
			continue
		}
		s.warnIfClosedWithoutExit(ctx, op, rec)

		err := s.repo.Create(ctx, rec)
		switch {
		case err == nil:
			result.Created++
		case errors.Is(err, ports.ErrDuplicateEntry):
			updated, uerr := s.refreshImported(ctx, rec)
			if uerr != nil {
				return result, uerr
			}
			if updated {
				result.Updated++
			} else {
				result.Skipped++
			}
		default:
			s.logger.Error(ctx, err, op+": Failed to save imported trade", map[string]interface{}{"tradeID": rec.ID})
			return result, fmt.Errorf("save imported trade %s: %w", rec.ID, err)
		}
	}

	s.logger.Info(ctx, op+": Import finished", map[string]interface{}{
		"symbol": symbol, "fetched": result.Fetched, "created": result.Created,
		"updated": result.Updated, "skipped": result.Skipped, "invalid": result.Invalid,
	})
	return result, nil
}

// refreshImported overwrites a journaled trade that was still open with its
// closed re-import. User notes are kept.
func (s *JournalService) refreshImported(ctx context.Context, rec *domain.TradeRecord) (bool, error) {
	existing, err := s.repo.FindByID(ctx, rec.ID)
	if err != nil {
		return false, fmt.Errorf("load existing trade %s: %w", rec.ID, err)
	}
	if existing == nil || existing.IsDeleted() || existing.IsClosed() || !rec.IsClosed() {
		return false, nil
	}
	rec.Notes = existing.Notes
	rec.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, rec); err != nil {
		return false, fmt.Errorf("update imported trade %s: %w", rec.ID, err)
	}
	return true, nil
}

// --- Helpers ---

// minIDPrefix is the shortest prefix accepted in place of a full trade ID.
const minIDPrefix = 4

func (s *JournalService) loadActive(ctx context.Context, ref string) (*domain.TradeRecord, error) {
	id, err := s.resolveID(ctx, ref)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade %s: %w", id, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("trade %s: %w", id, ports.ErrNotFound)
	}
	if rec.IsDeleted() {
		return nil, fmt.Errorf("trade %s: %w", id, ports.ErrTradeDeleted)
	}
	return rec, nil
}

// resolveID maps ref to a stored trade ID. An exact match wins; otherwise ref
// must be a prefix of exactly one active trade's ID, as printed by the trade log.
func (s *JournalService) resolveID(ctx context.Context, ref string) (string, error) {
	rec, err := s.repo.FindByID(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("failed to load trade %s: %w", ref, err)
	}
	if rec != nil {
		return rec.ID, nil
	}
	if len(ref) < minIDPrefix {
		return "", fmt.Errorf("trade %s: %w", ref, ports.ErrNotFound)
	}

	active, err := s.repo.FindByAccount(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to resolve trade %s: %w", ref, err)
	}
	var matches []string
	for _, r := range active {
		if r != nil && strings.HasPrefix(r.ID, ref) {
			matches = append(matches, r.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("trade %s: %w", ref, ports.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: trade ID prefix %q matches %d trades", ports.ErrInvalidRequest, ref, len(matches))
	}
}

func (s *JournalService) validate(ctx context.Context, op string, rec *domain.TradeRecord) error {
	if err := rec.Validate(); err != nil {
		s.logger.Warn(ctx, op+": Rejected invalid trade", map[string]interface{}{"tradeID": rec.ID, "error": err.Error()})
		return fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
	}
	s.warnIfClosedWithoutExit(ctx, op, rec)
	return nil
}

func (s *JournalService) warnIfClosedWithoutExit(ctx context.Context, op string, rec *domain.TradeRecord) {
	if rec.IsClosed() && rec.ActualExit == nil {
		s.logger.Warn(ctx, op+": Closed trade has no exit price", map[string]interface{}{"tradeID": rec.ID})
	}
}

func (s *JournalService) records(ctx context.Context, accountID string) ([]domain.TradeRecord, error) {
	found, err := s.repo.FindByAccount(ctx, accountID)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to load trades", map[string]interface{}{"account": accountID})
		return nil, fmt.Errorf("failed to load trades for account %q: %w", accountID, err)
	}
	records := make([]domain.TradeRecord, 0, len(found))
	for _, r := range found {
		if r != nil {
			records = append(records, *r)
		}
	}
	return records, nil
}

func tradesOf(rows []tradelog.Row) []domain.TradeRecord {
	trades := make([]domain.TradeRecord, len(rows))
	for i, r := range rows {
		trades[i] = r.Trade
	}
	return trades
}
