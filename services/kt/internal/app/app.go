package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ktassist/internal/util"
	"ktassist/pkg/ai"
	"ktassist/pkg/auth"
	"ktassist/pkg/domain"
	"ktassist/pkg/knowledge"
	"ktassist/pkg/storage"
	"ktassist/pkg/store"
)

// Config holds runtime configuration for the core application. The optional
// Activity, Objects and Generator fields override what would otherwise be
// built from the raw settings.
type Config struct {
	UploadDir      string
	DatabaseURL    string
	ObjectStore    storage.ObjectConfig
	CredentialsKey string
	Generation     ai.Config
	SessionSecret  string
	SessionTTL     time.Duration

	Activity  store.ActivityStore
	Objects   storage.ObjectStore
	Generator ai.TextGenerator
}

// App wires sessions, the ingestion pipeline and activity recording.
type App struct {
	pipeline *knowledge.Pipeline
	activity store.ActivityStore
	registry *storage.CredentialRegistry
	sessions *SessionManager
	tokens   *TokenSigner
	now      func() time.Time
}

// New constructs the application. Object storage and the credential registry
// are enabled only when the object store is fully configured.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	tokens, err := NewTokenSigner(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	files, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	activity := cfg.Activity
	if activity == nil {
		activity, err = store.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init activity store: %w", err)
		}
	}

	objects := cfg.Objects
	if objects == nil && cfg.ObjectStore.Enabled() {
		objects, err = storage.NewMinioStore(cfg.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
	}
	var registry *storage.CredentialRegistry
	if objects != nil {
		registry = storage.NewCredentialRegistry(objects, cfg.CredentialsKey)
	}

	gen := cfg.Generator
	if gen == nil {
		gen, err = ai.NewGenerator(ctx, cfg.Generation)
		if err != nil {
			return nil, fmt.Errorf("init generator: %w", err)
		}
	}

	pipeline, err := knowledge.NewPipeline(knowledge.PipelineConfig{
		Files:      files,
		Objects:    objects,
		Activity:   activity,
		Summarizer: knowledge.NewSummarizer(gen),
		Responder:  knowledge.NewResponder(gen),
	})
	if err != nil {
		return nil, err
	}
	return &App{
		pipeline: pipeline,
		activity: activity,
		registry: registry,
		sessions: NewSessionManager(cfg.SessionTTL),
		tokens:   tokens,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
	Warnings  []string  `json:"warnings,omitempty"`
}

// Login accepts any non-empty email and password. With a credential registry
// the first login of an email registers it and later logins must match.
// Registry and activity failures are reported as warnings and never block
// the login.
func (a *App) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, ErrMissingCredentials
	}
	logger := util.LoggerFromContext(ctx).With("email", email)
	var warnings []string

	if a.registry != nil {
		known, ok, err := a.registry.Verify(ctx, email, password)
		switch {
		case err != nil:
			logger.Warn("credential registry unavailable", "err", err)
			warnings = append(warnings, fmt.Sprintf("credential check skipped: %v", err))
		case known && !ok:
			return LoginResult{}, ErrInvalidCredentials
		case !known:
			if err := a.registry.Register(ctx, email, password); err != nil {
				logger.Warn("credential registration failed", "err", err)
				warnings = append(warnings, fmt.Sprintf("credential registration failed: %v", err))
			}
		}
	}

	if err := a.activity.RecordLogin(ctx, email, a.now()); err != nil {
		logger.Warn("login record failed", "err", err)
		warnings = append(warnings, fmt.Sprintf("login record failed: %v", err))
	}

	sess := a.sessions.Create(email)
	token, expires, err := a.tokens.Issue(sess.ID, email)
	if err != nil {
		a.sessions.Delete(sess.ID)
		return LoginResult{}, err
	}
	logger.Info("login", "session_id", sess.ID)
	return LoginResult{Token: token, Email: email, ExpiresAt: expires, Warnings: warnings}, nil
}

// Authenticate resolves a bearer token to its live session.
func (a *App) Authenticate(token string) (*knowledge.Session, error) {
	id, err := a.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	sess, ok := a.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: session ended", ErrUnauthorized)
	}
	return sess, nil
}

// Logout ends the session; its documents and history are dropped.
func (a *App) Logout(sess *knowledge.Session) {
	a.sessions.Delete(sess.ID)
}

// Upload ingests files one after another.
func (a *App) Upload(ctx context.Context, sess *knowledge.Session, uploads []knowledge.Upload) ([]knowledge.IngestResult, []error) {
	return a.pipeline.IngestAll(ctx, sess, uploads)
}

// Ask answers one chat question.
func (a *App) Ask(ctx context.Context, sess *knowledge.Session, question string) (domain.ChatTurn, error) {
	turn, err := a.pipeline.Ask(ctx, sess, question)
	if err != nil && !errors.Is(err, knowledge.ErrEmptyQuestion) {
		return domain.ChatTurn{}, fmt.Errorf("ask: %w", err)
	}
	return turn, err
}

// Summary is the per-document view used by the summaries listing.
type Summary struct {
	Filename   string `json:"filename"`
	Summary    string `json:"summary"`
	UploadedBy string `json:"uploadedBy"`
}

// Summaries lists summaries in upload order.
func (a *App) Summaries(sess *knowledge.Session) []Summary {
	docs := sess.Documents.List()
	out := make([]Summary, 0, len(docs))
	for _, doc := range docs {
		out = append(out, Summary{Filename: doc.Filename, Summary: doc.Summary, UploadedBy: doc.UploadedBy})
	}
	return out
}

// Documents lists session documents in upload order. Text is not serialized.
func (a *App) Documents(sess *knowledge.Session) []domain.Document {
	return sess.Documents.List()
}

// History returns chat turns oldest first.
func (a *App) History(sess *knowledge.Session) []domain.ChatTurn {
	return sess.History()
}

// SessionCount reports live sessions for health output.
func (a *App) SessionCount() int {
	return a.sessions.Len()
}
