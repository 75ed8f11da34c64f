package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mpawlak/statsync/internal/checkpoint"
	"github.com/mpawlak/statsync/internal/errlog"
	"github.com/mpawlak/statsync/pkg/logger"
	"github.com/mpawlak/statsync/pkg/models"
)

// Pipeline drives the upload for one or more categories: checkpoint load,
// scan, parse, batched upserts, checkpoint advancement, verification and the
// final summary. Categories run strictly sequentially, and batches within a
// category commit strictly in index order, so checkpoint offsets only ever
// move forward.
type Pipeline struct {
	Store       Store
	Source      Source
	Checkpoints *checkpoint.Store
	Errors      *errlog.Log
	BatchSize   int
	BatchDelay  time.Duration
	Retry       RetryPolicy
	DryRun      bool
}

// CategoryResult aggregates one category's outcome for the run summary.
type CategoryResult struct {
	Category      models.Category
	Total         int
	Uploaded      int
	Malformed     int
	FailedBatches int
	Skipped       bool
	Verified      int64
}

// Summary is the whole run's outcome. Interrupted is set when the run was
// stopped by context cancellation before all categories finished.
type Summary struct {
	Results     []CategoryResult
	Interrupted bool
}

// Errors reports whether any category recorded failed batches or malformed
// rows. Per-batch errors do not change the process exit code; they are
// surfaced here and in the error log.
func (s *Summary) Errors() int {
	n := 0
	for _, r := range s.Results {
		n += r.FailedBatches + r.Malformed
	}
	return n
}

// Run executes the upload for the requested categories. Only fatal
// conditions (no source rows for a category, checkpoint parse failure is
// not one) return an error; per-batch failures are logged and skipped so
// one bad batch never blocks the data behind it.
func (p *Pipeline) Run(ctx context.Context, cats []models.Category) (*Summary, error) {
	cp, err := p.Checkpoints.Load()
	if err != nil {
		// Bookkeeping failure: proceed as a fresh start rather than abort.
		logger.Warnf("checkpoint unreadable, starting fresh: %v", err)
		cp = models.NewCheckpoint()
	}

	summary := &Summary{}
	start := time.Now()

	for _, cat := range cats {
		result, err := p.runCategory(ctx, cp, cat)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				summary.Interrupted = true
				summary.Results = append(summary.Results, result)
				break
			}
			return nil, err
		}
		summary.Results = append(summary.Results, result)
	}

	p.finish(cp, cats, summary, time.Since(start))
	return summary, nil
}

func (p *Pipeline) runCategory(ctx context.Context, cp *models.Checkpoint, cat models.Category) (CategoryResult, error) {
	result := CategoryResult{Category: cat, Verified: -1}

	// Scanning + Parsing
	rows, err := p.Source.Rows(ctx, cat)
	if err != nil {
		return result, fmt.Errorf("category %s: %w", cat, err)
	}
	docs, malformed := p.parse(cat, rows)
	result.Total = len(docs)
	result.Malformed = malformed

	prog := cp.Progress(cat)
	if prog.Completed {
		logger.Infof("%s: already completed, skipping upload", cat)
		result.Skipped = true
		p.verify(ctx, cat, &result)
		return result, nil
	}

	// Uploading
	ranges := Partition(len(docs), p.BatchSize, prog.LastIndex)
	logger.Infof("%s: %d records, %d batches to upload from offset %d",
		cat, len(docs), len(ranges), prog.LastIndex)

	contiguous := true
	for i, r := range ranges {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		batch := docs[r.Start:r.End]
		writeErr := p.writeBatch(ctx, cat, batch)
		switch {
		case writeErr == nil:
			result.Uploaded += r.Len()
			if contiguous {
				prog.LastIndex = r.End
				prog.Completed = prog.LastIndex == len(docs)
				cp.SetProgress(cat, prog)
				p.saveCheckpoint(cp)
			}
		case ctx.Err() != nil:
			// Interrupt: stop before the next batch. The checkpoint
			// already reflects every committed batch.
			return result, ctx.Err()
		default:
			// One bad batch must not block the data behind it. The offset
			// freezes at this batch's start, so a later run re-sends it.
			result.FailedBatches++
			contiguous = false
			logger.Errorf("%s: batch %d (records %d-%d) failed: %v", cat, r.Index, r.Start, r.End-1, writeErr)
			if logErr := p.Errors.Append(writeErr, fmt.Sprintf("%s batch %d [%d,%d)", cat, r.Index, r.Start, r.End)); logErr != nil {
				logger.Warnf("could not record error: %v", logErr)
			}
		}

		if i < len(ranges)-1 {
			select {
			case <-time.After(p.BatchDelay):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}

	if len(ranges) == 0 && !prog.Completed {
		// Nothing left to upload (e.g. offset already at total).
		prog.Completed = prog.LastIndex >= len(docs)
		cp.SetProgress(cat, prog)
		p.saveCheckpoint(cp)
	}

	p.verify(ctx, cat, &result)
	return result, nil
}

// parse normalizes raw rows into documents. Malformed rows are recorded and
// dropped; because the drop is a pure function of the input, batch
// boundaries stay stable across runs over the same files.
func (p *Pipeline) parse(cat models.Category, rows []models.RawRecord) ([]models.Document, int) {
	docs := make([]models.Document, 0, len(rows))
	malformed := 0
	for i, row := range rows {
		doc, err := Normalize(cat, row)
		if err != nil {
			malformed++
			logger.Warnf("%s: dropping row %d: %v", cat, i, err)
			if logErr := p.Errors.Append(err, fmt.Sprintf("%s row %d", cat, i)); logErr != nil {
				logger.Warnf("could not record error: %v", logErr)
			}
			continue
		}
		docs = append(docs, doc)
	}
	return docs, malformed
}

func (p *Pipeline) writeBatch(ctx context.Context, cat models.Category, batch []models.Document) error {
	if p.DryRun {
		logger.Infof("[DRY RUN] would upsert %d documents into %s", len(batch), cat.Collection())
		return nil
	}
	return p.Retry.Do(ctx, func(ctx context.Context) error {
		return p.Store.UpsertMany(ctx, cat.Collection(), batch)
	})
}

func (p *Pipeline) saveCheckpoint(cp *models.Checkpoint) {
	if p.DryRun {
		return
	}
	if err := p.Checkpoints.Save(cp); err != nil {
		// Progress not saved this batch; a later save heals it.
		logger.Warnf("checkpoint not saved: %v", err)
	}
}

func (p *Pipeline) verify(ctx context.Context, cat models.Category, result *CategoryResult) {
	count, err := p.Store.Count(ctx, cat.Collection())
	if err != nil {
		logger.Warnf("%s: verification count failed: %v", cat, err)
		return
	}
	result.Verified = count
}

// finish prints the summary and clears the checkpoint once nothing is left
// to resume. The checkpoint file is shared by all categories, so it is only
// removed when every requested category completed and no other category
// still has unfinished progress recorded in it.
func (p *Pipeline) finish(cp *models.Checkpoint, cats []models.Category, summary *Summary, elapsed time.Duration) {
	total := 0
	for _, r := range summary.Results {
		logger.Infof("%s: total=%d uploaded=%d malformed=%d failed_batches=%d verified=%d skipped=%v",
			r.Category, r.Total, r.Uploaded, r.Malformed, r.FailedBatches, r.Verified, r.Skipped)
		total += r.Uploaded
	}
	rate := 0.0
	if elapsed.Seconds() > 0 {
		rate = float64(total) / elapsed.Seconds()
	}
	logger.Infof("Run finished in %v: %d documents uploaded (%.2f docs/sec), %d errors",
		elapsed.Round(time.Millisecond), total, rate, summary.Errors())

	if p.DryRun || summary.Interrupted {
		return
	}
	if !cp.AllCompleted(cats) {
		return
	}
	for cat, prog := range cp.Categories {
		if !prog.Completed {
			logger.Infof("checkpoint kept: %s still in progress", cat)
			return
		}
	}
	if err := p.Checkpoints.Clear(); err != nil {
		logger.Warnf("checkpoint not cleared: %v", err)
		return
	}
	logger.Info("all categories completed, checkpoint cleared")
}

// Verify returns the current destination count for each category without
// touching the checkpoint.
func (p *Pipeline) Verify(ctx context.Context, cats []models.Category) (map[models.Category]int64, error) {
	counts := make(map[models.Category]int64, len(cats))
	for _, cat := range cats {
		n, err := p.Store.Count(ctx, cat.Collection())
		if err != nil {
			return nil, fmt.Errorf("counting %s: %w", cat.Collection(), err)
		}
		counts[cat] = n
	}
	return counts, nil
}
