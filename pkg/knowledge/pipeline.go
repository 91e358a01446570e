package knowledge

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"ktassist/internal/util"
	"ktassist/pkg/domain"
	"ktassist/pkg/extract"
	"ktassist/pkg/storage"
	"ktassist/pkg/store"
)

// FileSaver persists raw uploads locally. storage.FileStore implements it.
type FileSaver interface {
	Save(filename string, r io.Reader) (path string, size int64, err error)
}

// ExtractFunc turns a saved file into text. extract.Extract is the default.
type ExtractFunc func(path string) (string, error)

// PipelineConfig wires a Pipeline. Objects and Activity are optional.
type PipelineConfig struct {
	Files      FileSaver
	Objects    storage.ObjectStore
	Activity   store.ActivityStore
	Summarizer *Summarizer
	Responder  *Responder
	Extract    ExtractFunc
	Now        func() time.Time
}

// Pipeline drives ingestion and chat for sessions.
type Pipeline struct {
	files      FileSaver
	objects    storage.ObjectStore
	activity   store.ActivityStore
	summarizer *Summarizer
	responder  *Responder
	extract    ExtractFunc
	now        func() time.Time
}

// NewPipeline validates required collaborators.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Files == nil {
		return nil, fmt.Errorf("file saver required")
	}
	if cfg.Summarizer == nil || cfg.Responder == nil {
		return nil, fmt.Errorf("summarizer and responder required")
	}
	p := &Pipeline{
		files:      cfg.Files,
		objects:    cfg.Objects,
		activity:   cfg.Activity,
		summarizer: cfg.Summarizer,
		responder:  cfg.Responder,
		extract:    cfg.Extract,
		now:        cfg.Now,
	}
	if p.extract == nil {
		p.extract = extract.Extract
	}
	if p.now == nil {
		p.now = func() time.Time { return time.Now().UTC() }
	}
	return p, nil
}

// IngestResult reports what happened to one uploaded file.
type IngestResult struct {
	Filename string          `json:"filename"`
	Skipped  bool            `json:"skipped"`
	Document domain.Document `json:"document"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Upload is one file handed to IngestAll.
type Upload struct {
	Filename string
	Body     io.Reader
}

// ObjectKey is where an upload is mirrored in object storage.
func ObjectKey(email, filename string) string {
	return path.Join("uploads", email, filename)
}

// Ingest processes one file to completion. The only error returned is a
// failure to save the raw bytes locally; every later step degrades to a
// warning. A filename already present in the session is skipped entirely.
func (p *Pipeline) Ingest(ctx context.Context, sess *Session, filename string, body io.Reader) (IngestResult, error) {
	sess.op.Lock()
	defer sess.op.Unlock()
	return p.ingest(ctx, sess, filename, body)
}

// IngestAll processes files one at a time, in order. A save failure on one
// file does not stop the rest; its error is returned in errs at the same index.
func (p *Pipeline) IngestAll(ctx context.Context, sess *Session, uploads []Upload) ([]IngestResult, []error) {
	sess.op.Lock()
	defer sess.op.Unlock()
	results := make([]IngestResult, len(uploads))
	errs := make([]error, len(uploads))
	for i, up := range uploads {
		results[i], errs[i] = p.ingest(ctx, sess, up.Filename, up.Body)
	}
	return results, errs
}

func (p *Pipeline) ingest(ctx context.Context, sess *Session, filename string, body io.Reader) (IngestResult, error) {
	logger := util.LoggerFromContext(ctx).With("session_id", sess.ID, "filename", filename)
	if strings.TrimSpace(filename) == "" {
		return IngestResult{}, ErrEmptyFilename
	}
	filename = storage.SafeFilename(filename)
	res := IngestResult{Filename: filename}
	if sess.Documents.Contains(filename) {
		res.Skipped = true
		res.Document, _ = sess.Documents.Get(filename)
		logger.Info("upload skipped, already present")
		return res, nil
	}

	storagePath, size, err := p.files.Save(filename, body)
	if err != nil {
		return res, fmt.Errorf("save %s: %w", filename, err)
	}
	contentType := extract.ContentType(filename)
	doc := domain.Document{
		Filename:    filename,
		Summary:     domain.SummaryPending,
		UploadedBy:  sess.Email,
		StoragePath: storagePath,
		SizeBytes:   size,
		UploadedAt:  p.now(),
	}

	if p.objects != nil {
		key := ObjectKey(sess.Email, filename)
		if err := p.mirror(ctx, key, storagePath, size, contentType); err != nil {
			logger.Warn("object store upload failed", "err", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("object store upload failed: %v", err))
		} else {
			doc.ObjectKey = key
		}
	}

	if !extract.Supported(filename) {
		logger.Warn("unsupported file type", "ext", extract.Ext(filename))
		res.Warnings = append(res.Warnings, fmt.Sprintf("unsupported file type %q; no text extracted", extract.Ext(filename)))
	}
	text, err := p.extract(storagePath)
	if err != nil {
		logger.Warn("text extraction failed", "err", err, "partial_chars", len([]rune(text)))
		res.Warnings = append(res.Warnings, fmt.Sprintf("error extracting text: %v", err))
	}
	doc.Text = text
	doc.TextRunes = len([]rune(text))
	sess.Documents.Put(doc)

	doc.Summary = p.summarizer.Summarize(ctx, text)
	sess.Documents.SetSummary(filename, doc.Summary)

	if p.activity != nil {
		rec := domain.UploadRecord{
			Email:      sess.Email,
			Filename:   filename,
			FilePath:   storagePath,
			UploadTime: doc.UploadedAt,
			Metadata: domain.UploadMetadata{
				SizeBytes:   size,
				ContentType: contentType,
				ObjectKey:   doc.ObjectKey,
			},
		}
		if err := p.activity.RecordUpload(ctx, rec); err != nil {
			logger.Warn("upload record failed", "err", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("upload record failed: %v", err))
		}
	}
	res.Document = doc
	logger.Info("upload processed", "size_bytes", size, "text_chars", doc.TextRunes)
	return res, nil
}

func (p *Pipeline) mirror(ctx context.Context, key, localPath string, size int64, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.objects.Put(ctx, key, f, size, contentType)
}

// Ask records the question, answers it from the session documents and prior
// turns, records the answer and returns it.
func (p *Pipeline) Ask(ctx context.Context, sess *Session, question string) (domain.ChatTurn, error) {
	if strings.TrimSpace(question) == "" {
		return domain.ChatTurn{}, ErrEmptyQuestion
	}
	sess.op.Lock()
	defer sess.op.Unlock()

	prior := sess.History()
	sess.appendTurn(domain.ChatTurn{Role: domain.RoleUser, Content: question, CreatedAt: p.now()})
	answer := p.responder.Respond(ctx, question, sess.Documents.List(), prior)
	turn := domain.ChatTurn{Role: domain.RoleAssistant, Content: answer, CreatedAt: p.now()}
	sess.appendTurn(turn)
	return turn, nil
}
