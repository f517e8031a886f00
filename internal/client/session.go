// Package client is the reader/operator side of the catalog. A Session holds
// the capability, decides which store is authoritative, and falls back to the
// local replica for reads when the remote catalog cannot be reached.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"examia/internal/apperr"
	"examia/internal/auth"
	"examia/internal/buckets"
	"examia/internal/config"
	"examia/internal/localstore"
	"examia/internal/model"
	"examia/internal/replica"
	"examia/internal/service"
	"examia/internal/storage"
)

// Authority names the store that answered or accepted a call.
type Authority string

const (
	AuthorityRemote  Authority = "remote"
	AuthorityReplica Authority = "replica"
)

// ErrUnavailable is returned for writes and logins when the remote catalog cannot be reached.
var ErrUnavailable = apperr.ErrUnavailable

// QueryResult is a query answer and the store it came from.
type QueryResult struct {
	Questions []model.Question `json:"questions"`
	Source    Authority        `json:"source"`
}

// sessionRecord is the persisted capability cache.
type sessionRecord struct {
	Authority  Authority       `json:"authority"`
	BackendURL string          `json:"backend_url,omitempty"`
	Token      auth.Capability `json:"token"`
}

// Options are the collaborators of a Session. Remote is built from Config when nil.
type Options struct {
	Config  *config.ClientConfig
	Store   localstore.Store
	Replica *replica.Manager
	Assets  storage.Storage
	Remote  *Remote
	Logger  *zap.Logger
}

// Session is the explicitly constructed client context. It is not safe for
// concurrent mutation; callers issue one user action at a time.
type Session struct {
	authority Authority
	backend   string
	store     localstore.Store
	replica   *replica.Manager
	remote    *Remote
	local     *local
	cap       auth.Capability
	log       *zap.Logger
}

// Open initialises a session: the authority is fixed from configuration, a cached
// capability for the same authority is restored, and in local-only mode the
// replica is seeded.
func Open(ctx context.Context, opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("client config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Store == nil || opts.Replica == nil || opts.Assets == nil {
		return nil, errors.New("store, replica and assets are required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Session{
		authority: AuthorityRemote,
		backend:   cfg.BackendURL,
		store:     opts.Store,
		replica:   opts.Replica,
		local:     newLocal(auth.NewGate(cfg.Admin), opts.Replica, opts.Assets),
		log:       log.With(zap.String("component", "session")),
	}
	if cfg.LocalOnly {
		s.authority = AuthorityReplica
		s.backend = ""
	} else {
		s.remote = opts.Remote
		if s.remote == nil {
			s.remote = NewRemote(cfg.BackendURL, cfg.Timeout)
		}
	}

	if s.authority == AuthorityReplica {
		if _, err := s.replica.EnsureSeeded(ctx); err != nil {
			return nil, err
		}
	}
	if err := s.restore(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) restore(ctx context.Context) error {
	b, err := s.store.Get(ctx, localstore.KeySession)
	if errors.Is(err, localstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	var rec sessionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		s.log.Warn("session_record_ignored", zap.Error(err))
		return nil
	}
	if rec.Authority != s.authority || rec.BackendURL != s.backend {
		s.log.Info("session_record_ignored", zap.String("reason", "authority changed"))
		return nil
	}
	s.cap = rec.Token
	return nil
}

// Authority reports which store holds write authority for this session.
func (s *Session) Authority() Authority { return s.authority }

// LoggedIn reports whether a capability is held.
func (s *Session) LoggedIn() bool { return s.cap != "" }

// Login exchanges credentials for a capability and caches it. Logins are never
// diverted to the replica when the remote catalog is down.
func (s *Session) Login(ctx context.Context, identity, secret string) error {
	var (
		c   auth.Capability
		err error
	)
	if s.authority == AuthorityRemote {
		c, err = s.remote.Login(ctx, identity, secret)
	} else {
		c, err = s.local.Login(ctx, identity, secret)
	}
	if err != nil {
		return err
	}

	b, err := json.Marshal(sessionRecord{Authority: s.authority, BackendURL: s.backend, Token: c})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.store.Put(ctx, localstore.KeySession, b); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	s.cap = c
	s.log.Info("login", zap.String("authority", string(s.authority)))
	return nil
}

// Logout forgets the capability and clears its persisted record.
func (s *Session) Logout(ctx context.Context) error {
	s.cap = ""
	if err := s.store.Delete(ctx, localstore.KeySession); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Query reads from the authority. In remote mode a transport failure falls back
// to the replica; the result says which store answered.
func (s *Session) Query(ctx context.Context, f model.Filter) (*QueryResult, error) {
	if s.authority == AuthorityRemote {
		qs, err := s.remote.Query(ctx, f)
		if err == nil {
			return &QueryResult{Questions: qs, Source: AuthorityRemote}, nil
		}
		if !errors.Is(err, apperr.ErrUnavailable) {
			return nil, err
		}
		s.log.Warn("remote_unavailable", zap.String("fallback", string(AuthorityReplica)), zap.Error(err))
	}

	qs, err := s.local.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Questions: qs, Source: AuthorityReplica}, nil
}

// Buckets returns sorted bucket names under f, with the same fallback as Query.
func (s *Session) Buckets(ctx context.Context, f model.Filter) ([]string, Authority, error) {
	f.Bucket = ""
	if s.authority == AuthorityRemote {
		names, err := s.remote.Buckets(ctx, f)
		if err == nil {
			return names, AuthorityRemote, nil
		}
		if !errors.Is(err, apperr.ErrUnavailable) {
			return nil, "", err
		}
		s.log.Warn("remote_unavailable", zap.String("fallback", string(AuthorityReplica)), zap.Error(err))
	}

	qs, err := s.local.Query(ctx, f)
	if err != nil {
		return nil, "", err
	}
	return buckets.ListBucketNames(buckets.GroupByBucket(qs)), AuthorityReplica, nil
}

// Insert stores q at the authority and returns its id.
func (s *Session) Insert(ctx context.Context, q model.Question) (string, error) {
	if s.authority == AuthorityRemote {
		return s.remote.Insert(ctx, q, s.cap)
	}
	return s.local.Insert(ctx, q, s.cap)
}

// Delete removes a question by id at the authority.
func (s *Session) Delete(ctx context.Context, id string) error {
	if s.authority == AuthorityRemote {
		return s.remote.Delete(ctx, id, s.cap)
	}
	return s.local.Delete(ctx, id, s.cap)
}

// Upload stores a solution image at the authority.
func (s *Session) Upload(ctx context.Context, req model.UploadRequest) (*model.ImageAsset, error) {
	if s.authority == AuthorityRemote {
		return s.remote.Upload(ctx, req, s.cap)
	}
	return s.local.Upload(ctx, req, s.cap)
}

// InsertWithImage validates q, uploads the image, then inserts q pointing at it.
// If the insert fails after the upload succeeded, the asset is returned with the
// error and stays stored; nothing deletes it.
func (s *Session) InsertWithImage(ctx context.Context, q model.Question, img model.UploadRequest) (string, *model.ImageAsset, error) {
	if s.cap == "" {
		return "", nil, apperr.Authorization()
	}
	if err := service.ValidateQuestion(q); err != nil {
		return "", nil, err
	}

	asset, err := s.Upload(ctx, img)
	if err != nil {
		return "", nil, err
	}
	q.SolutionImage = asset.URL

	id, err := s.Insert(ctx, q)
	if err != nil {
		s.log.Warn("orphaned_asset", zap.String("storage_path", asset.StoragePath), zap.Error(err))
		return "", asset, err
	}
	return id, asset, nil
}

// ResetReplica discards local changes and reseeds the replica from the baseline.
// Callers must obtain explicit confirmation first.
func (s *Session) ResetReplica(ctx context.Context) error {
	return s.replica.Reset(ctx)
}

// ExportReplica writes the replica in baseline shape.
func (s *Session) ExportReplica(ctx context.Context, w io.Writer) error {
	return s.replica.Export(ctx, w)
}

// Close releases the local store. The cached capability survives until Logout.
func (s *Session) Close() error {
	return s.store.Close()
}
