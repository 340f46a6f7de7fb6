package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/backend-invoice/internal/auth"
	"github.com/noah-isme/backend-invoice/internal/cache"
	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/document"
	"github.com/noah-isme/backend-invoice/internal/events"
	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/queue"
	"github.com/noah-isme/backend-invoice/internal/settings"
	"github.com/noah-isme/backend-invoice/internal/tenant"
	"github.com/noah-isme/backend-invoice/internal/trip"
)

// TaskRenderInvoice renders and stores the PDF of an invoice.
const TaskRenderInvoice = "invoice:render"

var (
	ErrInvoiceNotFound = common.NotFound("INVOICE_NOT_FOUND", "invoice not found")
	ErrTenantRequired  = common.NewAppError("TENANT_REQUIRED", "tenant required", http.StatusForbidden, nil)
)

// Store is the query surface used by the service. *db.Queries implements it.
type Store interface {
	GetCompany(ctx context.Context, id uuid.UUID) (db.Company, error)
	ListTripsByIDs(ctx context.Context, arg db.ListTripsByIDsParams) ([]db.Trip, error)
	NextInvoiceNumber(ctx context.Context, companyID uuid.UUID) (db.NextInvoiceNumberRow, error)
	CreateInvoice(ctx context.Context, arg db.CreateInvoiceParams) (db.Invoice, error)
	InsertInvoiceLineItem(ctx context.Context, arg db.InsertInvoiceLineItemParams) error
	ListInvoiceLineItems(ctx context.Context, invoiceID uuid.UUID) ([]db.InvoiceLineItem, error)
	LinkInvoiceTrips(ctx context.Context, arg db.LinkInvoiceTripsParams) (int64, error)
	UnlinkInvoiceTrips(ctx context.Context, invoiceID uuid.UUID) (int64, error)
	GetInvoice(ctx context.Context, arg db.GetInvoiceParams) (db.Invoice, error)
	GetInvoiceByID(ctx context.Context, id uuid.UUID) (db.Invoice, error)
	ListInvoices(ctx context.Context, arg db.ListInvoicesParams) ([]db.Invoice, error)
	CountInvoices(ctx context.Context, arg db.CountInvoicesParams) (int64, error)
	UpdateInvoiceStatus(ctx context.Context, arg db.UpdateInvoiceStatusParams) (db.Invoice, error)
	GetInvoiceDocument(ctx context.Context, invoiceID uuid.UUID) (db.InvoiceDocument, error)
	UpsertInvoiceDocument(ctx context.Context, arg db.UpsertInvoiceDocumentParams) error
	DeleteInvoiceDocument(ctx context.Context, invoiceID uuid.UUID) error
}

// TxBeginner starts transactions. *pgxpool.Pool implements it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// SettingsProvider returns the invoice settings of the company in ctx.
type SettingsProvider interface {
	Get(ctx context.Context) (invoice.Settings, error)
	Invalidate(ctx context.Context)
}

// NumberSerializer runs fn while no other invoice of the company is being numbered.
type NumberSerializer interface {
	Serialize(ctx context.Context, companyID uuid.UUID, fn func(context.Context) error) error
}

// Emitter records domain events.
type Emitter interface {
	Emit(ctx context.Context, companyID uuid.UUID, topic string, aggregateID uuid.UUID, payload any) (db.DomainEvent, error)
}

// TaskEnqueuer publishes background tasks.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, t queue.Task) error
}

// Service implements invoice previews, creation and lifecycle.
type Service struct {
	Pool     TxBeginner
	Q        Store
	WithTx   func(pgx.Tx) Store
	Settings SettingsProvider
	Numbers  NumberSerializer
	Events   Emitter
	Queue    TaskEnqueuer
	Cache    *cache.JSON
	Now      func() time.Time
}

// NewService wires a Service on top of a pgx pool.
func NewService(pool TxBeginner, q *db.Queries, settingsSvc SettingsProvider, numbers NumberSerializer, bus Emitter, enq TaskEnqueuer, c *cache.JSON) *Service {
	return &Service{
		Pool:     pool,
		Q:        q,
		WithTx:   func(tx pgx.Tx) Store { return q.WithTx(tx) },
		Settings: settingsSvc,
		Numbers:  numbers,
		Events:   bus,
		Queue:    enq,
		Cache:    c,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func companyFrom(ctx context.Context) (uuid.UUID, error) {
	id, err := tenant.UUID(ctx)
	if err != nil {
		return uuid.Nil, ErrTenantRequired
	}
	return id, nil
}

// edits binds the caller's role to the edits; the client never picks the rate set.
func edits(ctx context.Context, e invoice.Edits) invoice.Edits {
	e.Perspective = invoice.PerspectiveCompany
	if p, ok := auth.PrincipalFrom(ctx); ok {
		e.Perspective = p.Perspective()
	}
	e.GroupBy = invoice.ParseGroupKey(string(e.GroupBy))
	return e
}

// sameState reports whether the GST split is CGST+SGST. It is only false when both state
// codes are known and differ.
func sameState(company db.Company, billedTo *document.Party) bool {
	if billedTo == nil {
		return true
	}
	a := strings.TrimSpace(company.StateCode)
	b := strings.TrimSpace(billedTo.StateCode)
	if a == "" || b == "" {
		return true
	}
	return strings.EqualFold(a, b)
}

// loadTrips fetches the requested trips of the company, failing when any is missing.
func loadTrips(ctx context.Context, q Store, companyID uuid.UUID, raw []string) ([]db.Trip, error) {
	seen := make(map[uuid.UUID]struct{}, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(strings.TrimSpace(r))
		if err != nil {
			return nil, common.BadRequest("INVALID_TRIP_ID", "invalid trip id").WithDetails(r)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, common.BadRequest("TRIPS_REQUIRED", "at least one trip is required")
	}
	rows, err := q.ListTripsByIDs(ctx, db.ListTripsByIDsParams{CompanyID: companyID, IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("load trips: %w", err)
	}
	if len(rows) != len(ids) {
		for _, row := range rows {
			delete(seen, row.ID)
		}
		missing := make([]string, 0, len(seen))
		for id := range seen {
			missing = append(missing, id.String())
		}
		sort.Strings(missing)
		return nil, common.NotFound("TRIPS_NOT_FOUND", "some trips were not found").WithDetails(missing)
	}
	return rows, nil
}

// Preview computes an invoice without saving anything.
func (s *Service) Preview(ctx context.Context, in PreviewInput) (Preview, error) {
	companyID, err := companyFrom(ctx)
	if err != nil {
		return Preview{}, err
	}
	cfg, err := s.Settings.Get(ctx)
	if err != nil {
		return Preview{}, err
	}
	rows, err := loadTrips(ctx, s.Q, companyID, in.TripIDs)
	if err != nil {
		return Preview{}, err
	}
	company, err := s.Q.GetCompany(ctx, companyID)
	if err != nil {
		return Preview{}, fmt.Errorf("load company: %w", err)
	}
	trips := trip.ToEngineAll(rows)
	e := edits(ctx, in.Edits)
	res := compute(trips, cfg, e)
	return Preview{
		LineItems:     res.LineItems,
		Summary:       res.Summary,
		Display:       invoice.Present(res.Summary, cfg, sameState(company, in.BilledTo)),
		GroupValues:   res.GroupValues,
		Charges:       res.Charges,
		Settings:      cfg,
		Perspective:   e.Perspective,
		GroupBy:       e.GroupBy,
		ServicePeriod: ServicePeriod(trips),
	}, nil
}

// BlankItem returns an empty custom line item carrying the group values of the edits.
func (s *Service) BlankItem(ctx context.Context, e invoice.Edits) (invoice.LineItem, error) {
	if _, err := companyFrom(ctx); err != nil {
		return invoice.LineItem{}, err
	}
	cfg, err := s.Settings.Get(ctx)
	if err != nil {
		return invoice.LineItem{}, err
	}
	return invoice.AddBlankLineItem(e.GroupValues(), cfg), nil
}

func compute(trips []invoice.Trip, cfg invoice.Settings, e invoice.Edits) invoice.Result {
	res := invoice.ComputeInvoice(trips, cfg, e)
	obs.Inc(obs.InvoicesComputedTotal, string(e.Perspective), string(e.GroupBy))
	if obs.InvoiceLineItems != nil {
		obs.InvoiceLineItems.Observe(float64(len(res.LineItems)))
	}
	return res
}

func parseDate(raw string, fallback time.Time) (time.Time, error) {
	t, err := trip.ParseDate(raw, fallback)
	if err != nil {
		return time.Time{}, common.BadRequest("INVALID_DATE", "dates must be YYYY-MM-DD")
	}
	return t, nil
}

// Create stores a new invoice, links its trips and schedules the PDF.
func (s *Service) Create(ctx context.Context, in CreateInput) (Invoice, error) {
	companyID, err := companyFrom(ctx)
	if err != nil {
		return Invoice{}, err
	}
	if s.Pool == nil {
		return Invoice{}, errors.New("billing: pool not configured")
	}
	cfg, err := s.Settings.Get(ctx)
	if err != nil {
		return Invoice{}, err
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	invoiceDate, err := parseDate(in.InvoiceDate, today)
	if err != nil {
		return Invoice{}, err
	}
	due := pgtype.Date{}
	if in.DueDate != "" {
		d, err := parseDate(in.DueDate, time.Time{})
		if err != nil {
			return Invoice{}, err
		}
		if d.Before(invoiceDate) {
			return Invoice{}, common.BadRequest("INVALID_DUE_DATE", "due date is before the invoice date")
		}
		due = pgtype.Date{Time: d, Valid: true}
	}
	createdBy := ""
	if p, ok := auth.PrincipalFrom(ctx); ok {
		createdBy = p.ClientID
	}
	e := edits(ctx, in.Edits)

	var (
		out       Invoice
		tripCount int
	)
	err = s.serialize(ctx, companyID, func(ctx context.Context) error {
		tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer func() {
			_ = tx.Rollback(ctx)
		}()
		qtx := s.withTx(tx)

		rows, err := loadTrips(ctx, qtx, companyID, in.TripIDs)
		if err != nil {
			return err
		}
		var linked []string
		tripIDs := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			if row.InvoiceID.Valid {
				linked = append(linked, row.ID.String())
			}
			tripIDs = append(tripIDs, row.ID)
		}
		if len(linked) > 0 {
			return errAlreadyInvoiced(linked)
		}
		tripCount = len(tripIDs)
		company, err := qtx.GetCompany(ctx, companyID)
		if err != nil {
			return fmt.Errorf("load company: %w", err)
		}
		billedBy := document.Party{Name: company.Name, StateCode: company.StateCode, GSTIN: company.GSTIN}
		if in.BilledBy != nil {
			billedBy = *in.BilledBy
		}

		trips := trip.ToEngineAll(rows)
		res := compute(trips, cfg, e)
		period := strings.TrimSpace(in.ServicePeriod)
		if period == "" {
			period = ServicePeriod(trips)
		}
		number := strings.TrimSpace(in.Number)
		if number == "" {
			if number, err = settings.Next(ctx, qtx, companyID); err != nil {
				return err
			}
		}
		row, err := qtx.CreateInvoice(ctx, db.CreateInvoiceParams{
			ID:                uuid.New(),
			CompanyID:         companyID,
			InvoiceNumber:     number,
			Status:            StatusUnpaid,
			Perspective:       string(e.Perspective),
			GroupBy:           string(e.GroupBy),
			InvoiceDate:       invoiceDate,
			DueDate:           due,
			ServicePeriod:     period,
			BilledTo:          mustJSON(in.BilledTo),
			BilledBy:          mustJSON(billedBy),
			BankDetails:       mustJSON(in.Bank),
			Notes:             in.Notes,
			Terms:             in.Terms,
			Settings:          mustJSON(cfg),
			SameState:         sameState(company, &in.BilledTo),
			GroupTax:          res.GroupValues.Tax,
			GroupDiscount:     res.GroupValues.Discount,
			Total:             res.Summary.Total,
			TotalTax:          res.Summary.TotalTax,
			TotalDiscount:     res.Summary.TotalDiscount,
			SubTotal:          res.Summary.SubTotal,
			MCDCharges:        res.Summary.MCDCharges,
			TollCharges:       res.Summary.TollCharges,
			AdditionalCharges: res.Summary.AdditionalCharges,
			Penalty:           res.Summary.Penalty,
			GrandTotal:        res.Summary.GrandTotal,
			CreatedBy:         createdBy,
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return common.NewAppError("INVOICE_NUMBER_TAKEN", "invoice number already used", http.StatusConflict, err).
					WithDetails(number)
			}
			return fmt.Errorf("create invoice: %w", err)
		}
		stored := make([]db.InvoiceLineItem, 0, len(res.LineItems))
		for i, li := range res.LineItems {
			item := db.InvoiceLineItem{
				InvoiceID:   row.ID,
				ID:          lineItemID(row.ID, li.ID),
				Position:    int32(i),
				Kind:        string(li.Kind),
				Name:        li.Name,
				Description: li.Description,
				Rate:        li.Rate,
				Quantity:    li.Quantity,
				Tax:         li.Tax,
				Discount:    li.Discount,
				Amount:      li.Amount,
				TripIDs:     li.TripIDs,
			}
			if err := qtx.InsertInvoiceLineItem(ctx, item); err != nil {
				return fmt.Errorf("insert line item: %w", err)
			}
			stored = append(stored, item)
		}
		if _, err := qtx.LinkInvoiceTrips(ctx, db.LinkInvoiceTripsParams{InvoiceID: row.ID, TripIDs: tripIDs}); err != nil {
			if db.IsUniqueViolation(err) {
				return errAlreadyInvoiced(nil)
			}
			return fmt.Errorf("link trips: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		out, err = fromRow(row, stored)
		return err
	})
	if err != nil {
		obs.Inc(obs.InvoicesCreatedTotal, createResult(err))
		return Invoice{}, err
	}
	obs.Inc(obs.InvoicesCreatedTotal, "success")

	s.Settings.Invalidate(ctx)
	s.invalidateReports(ctx)
	id := uuid.MustParse(out.ID)
	s.emit(ctx, companyID, events.TopicInvoiceCreated, id, events.InvoiceCreatedPayload{
		InvoiceID:  out.ID,
		Number:     out.Number,
		GrandTotal: out.Summary.GrandTotal.String(),
		TripCount:  tripCount,
		Email:      out.BilledTo.Email,
	})
	s.enqueueRender(ctx, id, out.Status)
	return out, nil
}

func errAlreadyInvoiced(ids []string) error {
	err := common.NewAppError("TRIPS_ALREADY_INVOICED", "some trips already belong to an invoice", http.StatusConflict, nil)
	if len(ids) > 0 {
		err = err.WithDetails(ids)
	}
	return err
}

func createResult(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus < http.StatusInternalServerError {
		return "rejected"
	}
	return "error"
}

// lineItemID keeps engine ids that are UUIDs and derives a stable UUID for anything else a
// client may have sent for custom rows.
func lineItemID(invoiceID uuid.UUID, id string) uuid.UUID {
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed
	}
	return uuid.NewSHA1(invoiceID, []byte(id))
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("billing: encode %T: %w", v, err))
	}
	return b
}

func (s *Service) withTx(tx pgx.Tx) Store {
	if s.WithTx != nil {
		return s.WithTx(tx)
	}
	if q, ok := s.Q.(*db.Queries); ok {
		return q.WithTx(tx)
	}
	return s.Q
}

func (s *Service) serialize(ctx context.Context, companyID uuid.UUID, fn func(context.Context) error) error {
	if s.Numbers == nil {
		return fn(ctx)
	}
	return s.Numbers.Serialize(ctx, companyID, fn)
}

func (s *Service) invalidateReports(ctx context.Context) {
	if err := s.Cache.DeletePrefix(ctx, cache.ReportPrefix(ctx)); err != nil {
		obs.Logger(ctx).Warn().Err(err).Msg("report cache invalidate")
	}
}

func (s *Service) emit(ctx context.Context, companyID uuid.UUID, topic string, id uuid.UUID, payload any) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, companyID, topic, id, payload); err != nil {
		obs.Logger(ctx).Error().Err(err).Str("topic", topic).Str("invoice_id", id.String()).Msg("emit event")
	}
}

type renderPayload struct {
	InvoiceID string `json:"invoiceId"`
}

func (s *Service) enqueueRender(ctx context.Context, id uuid.UUID, status string) {
	if s.Queue == nil {
		return
	}
	payload := mustJSON(renderPayload{InvoiceID: id.String()})
	err := s.Queue.Enqueue(ctx, queue.Task{
		Kind:           TaskRenderInvoice,
		Payload:        payload,
		IdempotencyKey: id.String() + ":" + status,
		MaxAttempts:    5,
	})
	if err != nil {
		obs.Logger(ctx).Error().Err(err).Str("invoice_id", id.String()).Msg("enqueue pdf render")
	}
}

// ListParams filters the invoice listing.
type ListParams struct {
	Status string
	Page   int
	Limit  int
}

// List returns a page of invoices without line items.
func (s *Service) List(ctx context.Context, p ListParams) (ListResult, error) {
	companyID, err := companyFrom(ctx)
	if err != nil {
		return ListResult{}, err
	}
	status := pgtype.Text{}
	if p.Status != "" {
		switch p.Status {
		case StatusUnpaid, StatusPaid, StatusCancelled:
			status = pgtype.Text{String: p.Status, Valid: true}
		default:
			return ListResult{}, common.BadRequest("INVALID_STATUS", "unknown invoice status")
		}
	}
	total, err := s.Q.CountInvoices(ctx, db.CountInvoicesParams{CompanyID: companyID, Status: status})
	if err != nil {
		return ListResult{}, fmt.Errorf("count invoices: %w", err)
	}
	rows, err := s.Q.ListInvoices(ctx, db.ListInvoicesParams{
		CompanyID: companyID,
		Status:    status,
		Limit:     int32(p.Limit),
		Offset:    int32(common.Offset(p.Page, p.Limit)),
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("list invoices: %w", err)
	}
	items := make([]Invoice, 0, len(rows))
	for _, row := range rows {
		inv, err := fromRow(row, nil)
		if err != nil {
			return ListResult{}, err
		}
		items = append(items, inv)
	}
	return ListResult{Items: items, Page: p.Page, Limit: p.Limit, Total: total}, nil
}

func (s *Service) load(ctx context.Context, q Store, companyID uuid.UUID, rawID string) (db.Invoice, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return db.Invoice{}, ErrInvoiceNotFound
	}
	row, err := q.GetInvoice(ctx, db.GetInvoiceParams{CompanyID: companyID, ID: id})
	if errors.Is(err, pgx.ErrNoRows) {
		return db.Invoice{}, ErrInvoiceNotFound
	}
	if err != nil {
		return db.Invoice{}, fmt.Errorf("load invoice: %w", err)
	}
	return row, nil
}

func withItems(ctx context.Context, q Store, row db.Invoice) (Invoice, error) {
	items, err := q.ListInvoiceLineItems(ctx, row.ID)
	if err != nil {
		return Invoice{}, fmt.Errorf("load line items: %w", err)
	}
	if items == nil {
		items = []db.InvoiceLineItem{}
	}
	return fromRow(row, items)
}

// Get returns one invoice with its line items.
func (s *Service) Get(ctx context.Context, id string) (Invoice, error) {
	companyID, err := companyFrom(ctx)
	if err != nil {
		return Invoice{}, err
	}
	row, err := s.load(ctx, s.Q, companyID, id)
	if err != nil {
		return Invoice{}, err
	}
	return withItems(ctx, s.Q, row)
}

// UpdateStatus moves an unpaid invoice to paid or cancelled. Cancelling releases its trips so
// they can be billed again.
func (s *Service) UpdateStatus(ctx context.Context, id, to string) (Invoice, error) {
	companyID, err := companyFrom(ctx)
	if err != nil {
		return Invoice{}, err
	}
	if s.Pool == nil {
		return Invoice{}, errors.New("billing: pool not configured")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Invoice{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	qtx := s.withTx(tx)
	current, err := s.load(ctx, qtx, companyID, id)
	if err != nil {
		return Invoice{}, err
	}
	if !CanTransition(current.Status, to) {
		return Invoice{}, common.NewAppError("INVALID_STATUS_TRANSITION", "invoice status cannot change", http.StatusConflict, nil).
			WithDetails(map[string]string{"from": current.Status, "to": to})
	}
	row, err := qtx.UpdateInvoiceStatus(ctx, db.UpdateInvoiceStatusParams{CompanyID: companyID, ID: current.ID, Status: to})
	if err != nil {
		return Invoice{}, fmt.Errorf("update status: %w", err)
	}
	if to == StatusCancelled {
		if _, err := qtx.UnlinkInvoiceTrips(ctx, row.ID); err != nil {
			return Invoice{}, fmt.Errorf("unlink trips: %w", err)
		}
	}
	if err := qtx.DeleteInvoiceDocument(ctx, row.ID); err != nil {
		return Invoice{}, fmt.Errorf("drop document: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Invoice{}, err
	}

	out, err := withItems(ctx, s.Q, row)
	if err != nil {
		return Invoice{}, err
	}
	s.invalidateReports(ctx)
	s.emit(ctx, companyID, events.TopicInvoiceStatusChanged, row.ID, events.InvoiceStatusChangedPayload{
		InvoiceID: out.ID,
		Number:    out.Number,
		From:      current.Status,
		To:        to,
		Email:     out.BilledTo.Email,
	})
	s.enqueueRender(ctx, row.ID, to)
	return out, nil
}

// PDF returns the stored document of an invoice, rendering and storing it when missing.
func (s *Service) PDF(ctx context.Context, id string) (db.InvoiceDocument, error) {
	companyID, err := companyFrom(ctx)
	if err != nil {
		return db.InvoiceDocument{}, err
	}
	row, err := s.load(ctx, s.Q, companyID, id)
	if err != nil {
		return db.InvoiceDocument{}, err
	}
	doc, err := s.Q.GetInvoiceDocument(ctx, row.ID)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return db.InvoiceDocument{}, fmt.Errorf("load document: %w", err)
	}
	return s.render(ctx, row)
}

func (s *Service) render(ctx context.Context, row db.Invoice) (db.InvoiceDocument, error) {
	ctx, span := obs.StartSpan(ctx, "invoice.render_pdf",
		attribute.String("invoice.id", row.ID.String()),
		attribute.String("invoice.number", row.InvoiceNumber))
	defer span.End()

	inv, err := withItems(ctx, s.Q, row)
	if err != nil {
		span.RecordError(err)
		return db.InvoiceDocument{}, err
	}
	view := inv.Document()
	content, err := document.Render(view)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render")
		obs.Inc(obs.PDFRenderTotal, "error")
		return db.InvoiceDocument{}, err
	}
	span.SetAttributes(attribute.Int("pdf.bytes", len(content)))
	obs.Inc(obs.PDFRenderTotal, "success")
	params := db.UpsertInvoiceDocumentParams{
		InvoiceID:   row.ID,
		Filename:    view.Filename(),
		ContentType: document.ContentType,
		Content:     content,
	}
	if err := s.Q.UpsertInvoiceDocument(ctx, params); err != nil {
		return db.InvoiceDocument{}, fmt.Errorf("store document: %w", err)
	}
	return db.InvoiceDocument{
		InvoiceID:   row.ID,
		Filename:    params.Filename,
		ContentType: params.ContentType,
		Content:     content,
		RenderedAt:  s.now(),
	}, nil
}

// HandleRenderTask processes invoice:render tasks.
func (s *Service) HandleRenderTask(ctx context.Context, task queue.Task) error {
	var p renderPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return fmt.Errorf("decode render payload: %v: %w", err, queue.ErrSkipRetry)
	}
	id, err := uuid.Parse(p.InvoiceID)
	if err != nil {
		return fmt.Errorf("invalid invoice id %q: %w", p.InvoiceID, queue.ErrSkipRetry)
	}
	row, err := s.Q.GetInvoiceByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("invoice %s gone: %w", id, queue.ErrSkipRetry)
	}
	if err != nil {
		return fmt.Errorf("load invoice: %w", err)
	}
	ctx = tenant.With(ctx, row.CompanyID.String())
	_, err = s.render(ctx, row)
	return err
}
