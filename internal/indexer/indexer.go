// Package indexer drives each inbound metadata record through the
// traceability checks to a terminal state and persists the results.
// Expected anomalies never abort a batch; store and audit I/O failures do.
package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mixelka/traceidx/internal/audit"
	"github.com/mixelka/traceidx/internal/database"
	"github.com/mixelka/traceidx/internal/validator"
	"github.com/mixelka/traceidx/pkg/models"
)

// State is the terminal processing state of one input record.
type State string

const (
	StatePending           State = "pending"
	StateFileInvalid       State = "file_invalid"
	StateIdentifierInvalid State = "identifier_invalid"
	StateIndexed           State = "indexed"
)

// Result is the per-input outcome of one processing pass.
type Result struct {
	State     State
	FilePath  string
	AnomalyID string
	Details   string
	Message   *models.SourceMessage
}

// Deps are the collaborators an Indexer needs. Audit may be nil.
type Deps struct {
	Validator *validator.Validator
	DB        *database.DB
	Audit     *audit.Log
	Logger    *slog.Logger
}

// Indexer processes metadata records sequentially, one terminal state
// per record per pass.
type Indexer struct {
	validator *validator.Validator
	db        *database.DB
	audit     *audit.Log
	logger    *slog.Logger
}

// New creates an indexer.
func New(deps Deps) *Indexer {
	return &Indexer{
		validator: deps.Validator,
		db:        deps.DB,
		audit:     deps.Audit,
		logger:    deps.Logger.With("component", "indexer"),
	}
}

// Process drives one record from Pending to a terminal state. Validation
// failures are converted to anomaly records and reported in the Result;
// only integrity violations and store/audit I/O failures return an error.
func (ix *Indexer) Process(ctx context.Context, rec models.MessageRecord) (Result, error) {
	result := Result{State: StatePending, FilePath: rec.FilePath}

	if fileCheck := ix.validator.CheckFile(rec.FilePath); !fileCheck.Valid {
		return ix.fail(ctx, result, StateFileInvalid, fileCheck, rec)
	}

	idCheck := ix.validator.CheckMessageID(rec.MessageID)
	if !idCheck.Valid {
		return ix.fail(ctx, result, StateIdentifierInvalid, idCheck, rec)
	}

	loc, err := rec.Location()
	if err != nil {
		return result, fmt.Errorf("invalid metadata record for %s: %w", rec.FilePath, err)
	}

	msg, err := models.NewSourceMessage(idCheck.Normalized, rec.FilePath, rec.SenderName, rec.SenderEmail, rec.SentDate, rec.Subject, loc)
	if err != nil {
		return result, fmt.Errorf("invalid metadata record for %s: %w", rec.FilePath, err)
	}

	if err := ix.db.SaveMessage(ctx, msg); err != nil {
		return result, err
	}

	if ix.audit != nil {
		err := ix.audit.Event("message_indexed", msg.MessageID, msg.FilePath, map[string]any{
			"subject": msg.Subject,
			"format":  string(msg.Location.Format()),
		})
		if err != nil {
			return result, err
		}
	}

	ix.logger.Debug("message indexed", "message_id", msg.MessageID, "file_path", msg.FilePath)

	result.State = StateIndexed
	result.Message = msg
	return result, nil
}

// fail records the anomaly in both the store and the audit trail and
// returns the terminal state.
func (ix *Indexer) fail(ctx context.Context, result Result, state State, check validator.Result, rec models.MessageRecord) (Result, error) {
	var value *string
	if check.AnomalyType != models.AnomalyMissingMessageID && rec.MessageID != "" {
		value = &rec.MessageID
	}

	anomalyID, err := ix.validator.RecordAnomaly(ctx, check.AnomalyType, rec.FilePath, value, check.Details)
	if err != nil {
		return result, err
	}

	if ix.audit != nil {
		err := ix.audit.Anomaly(audit.AnomalyEvent{
			AnomalyID:      anomalyID,
			AnomalyType:    string(check.AnomalyType),
			EmailFilePath:  rec.FilePath,
			MessageIDValue: value,
			ErrorDetails:   check.Details,
		})
		if err != nil {
			return result, err
		}
	}

	ix.logger.Warn("traceability anomaly",
		"anomaly_type", string(check.AnomalyType),
		"file_path", rec.FilePath,
		"anomaly_id", anomalyID,
	)

	result.State = state
	result.AnomalyID = anomalyID
	result.Details = check.Details
	return result, nil
}

// AttachItem persists an extracted item against an already-indexed
// message and appends an item_extracted audit event. The index status is
// derived from the confidence score inside the item factory.
func (ix *Indexer) AttachItem(ctx context.Context, source models.MessageKey, content string, itemType models.ItemType, priority models.Priority, confidence float64) (*models.ExtractedItem, error) {
	item, err := models.NewExtractedItem(content, source, itemType, priority, confidence)
	if err != nil {
		return nil, err
	}

	if err := ix.db.SaveItem(ctx, item); err != nil {
		return nil, err
	}

	if ix.audit != nil {
		err := ix.audit.Event("item_extracted", source.MessageID, source.FilePath, map[string]any{
			"item_id":      item.ItemID,
			"item_type":    string(item.ItemType),
			"index_status": string(item.IndexStatus),
		})
		if err != nil {
			return nil, err
		}
	}

	return item, nil
}

// BatchReport is the outcome of one sequential batch pass.
type BatchReport struct {
	Results []Result
	Indexed int
	Failed  int
	Summary validator.Summary
}

// ProcessBatch processes records in order, one at a time. No record can
// stop processing of the rest; work committed for earlier records stays
// durable even if a later record aborts the batch with an I/O error.
func (ix *Indexer) ProcessBatch(ctx context.Context, recs []models.MessageRecord) (BatchReport, error) {
	report := BatchReport{Results: make([]Result, 0, len(recs))}

	for _, rec := range recs {
		result, err := ix.Process(ctx, rec)
		if err != nil {
			return report, err
		}

		report.Results = append(report.Results, result)
		if result.State == StateIndexed {
			report.Indexed++
		} else {
			report.Failed++
		}
	}

	summary, err := ix.validator.Summarize(ctx, "")
	if err != nil {
		return report, err
	}
	report.Summary = summary

	return report, nil
}
