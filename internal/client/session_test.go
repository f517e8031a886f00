package client

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"examia/internal/apperr"
	"examia/internal/auth"
	"examia/internal/config"
	"examia/internal/http/handler"
	"examia/internal/localstore"
	"examia/internal/model"
	"examia/internal/replica"
	"examia/internal/service"
	"examia/internal/storage"
)

const (
	testBackend  = "http://catalog.examia.test"
	testIdentity = "admin@examia.test"
	testSecret   = "s3cret"
	testToken    = "cap-123"
)

func testAdmin() config.AdminConfig {
	return config.AdminConfig{Identity: testIdentity, Secret: testSecret, Token: testToken}
}

func baseline(t *testing.T) *replica.Document {
	t.Helper()
	doc, err := replica.LoadBaseline(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	return doc
}

// startServer serves the catalog routes, backed by a server-side replica, on an
// in-memory listener and returns a Remote dialing it.
func startServer(t *testing.T) *Remote {
	t.Helper()

	srvStore, err := localstore.NewFileStore(afero.NewMemMapFs(), "/srv/state")
	require.NoError(t, err)
	objects, err := storage.NewLocal(afero.NewMemMapFs(), "/srv/objects", testBackend+"/assets")
	require.NoError(t, err)

	gate := auth.NewGate(testAdmin())
	app := fiber.New(fiber.Config{DisableStartupMessage: true, ErrorHandler: handler.ErrorHandler()})
	handler.RegisterRoutes(app, handler.Dependencies{
		Catalog: service.NewCatalogService(gate, replica.NewManager(srvStore, baseline(t), nil)),
		Assets:  service.NewAssetService(gate, objects),
		Auth:    gate,
		Store:   objects,
	})

	ln := fasthttputil.NewInmemoryListener()
	go app.Listener(ln)
	t.Cleanup(func() { _ = app.Shutdown() })

	return NewRemote(testBackend, 2*time.Second, WithDial(func(string) (net.Conn, error) {
		return ln.Dial()
	}))
}

func unreachableRemote() *Remote {
	return NewRemote(testBackend, time.Second, WithDial(func(string) (net.Conn, error) {
		return nil, errors.New("dial tcp: connection refused")
	}))
}

type fixture struct {
	store  localstore.Store
	fs     afero.Fs
	assets storage.Storage
	rep    *replica.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := localstore.NewFileStore(fs, "/home/.examia")
	require.NoError(t, err)
	assets, err := storage.NewLocal(fs, "/home/.examia/assets", "")
	require.NoError(t, err)
	return &fixture{store: store, fs: fs, assets: assets, rep: replica.NewManager(store, baseline(t), nil)}
}

func (f *fixture) open(t *testing.T, cfg *config.ClientConfig, remote *Remote, log *zap.Logger) *Session {
	t.Helper()
	s, err := Open(context.Background(), Options{
		Config:  cfg,
		Store:   f.store,
		Replica: f.rep,
		Assets:  f.assets,
		Remote:  remote,
		Logger:  log,
	})
	require.NoError(t, err)
	return s
}

func remoteConfig() *config.ClientConfig {
	return &config.ClientConfig{BackendURL: testBackend, Timeout: time.Second}
}

func localConfig() *config.ClientConfig {
	return &config.ClientConfig{LocalOnly: true, Admin: testAdmin()}
}

func physicsQuestion(text string) model.Question {
	return model.Question{Subject: "physics", Year: 2024, Mode: model.ModeChapters, Bucket: "Kinematics", Question: text, Solution: "s"}
}

func pngUpload(name string) model.UploadRequest {
	return model.UploadRequest{ImageData: "data:image/png;base64,iVBORw0KGgo=", FileName: name}
}

func TestOpen_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := Open(ctx, Options{Store: f.store, Replica: f.rep, Assets: f.assets})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Config: &config.ClientConfig{}, Store: f.store, Replica: f.rep, Assets: f.assets})
	assert.ErrorIs(t, err, config.ErrBackendNotConfigured)

	_, err = Open(ctx, Options{Config: localConfig(), Replica: f.rep, Assets: f.assets})
	assert.Error(t, err)
}

func TestSession_RemoteRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.open(t, remoteConfig(), startServer(t), nil)
	assert.Equal(t, AuthorityRemote, s.Authority())

	_, err := s.Insert(ctx, physicsQuestion("Q?"))
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	err = s.Login(ctx, testIdentity, "wrong")
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
	assert.EqualError(t, err, "invalid credentials")
	assert.False(t, s.LoggedIn())

	require.NoError(t, s.Login(ctx, testIdentity, testSecret))
	assert.True(t, s.LoggedIn())

	_, err = s.Insert(ctx, model.Question{Year: 2024, Mode: model.ModeChapters, Bucket: "K", Question: "Q"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.EqualError(t, err, "subject is required")

	id, err := s.Insert(ctx, model.Question{Subject: "biology", Year: 2030, Mode: model.ModePapers, Bucket: "Paper 9", Question: "Q?"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	res, err := s.Query(ctx, model.Filter{Subject: "biology"})
	require.NoError(t, err)
	assert.Equal(t, AuthorityRemote, res.Source)
	require.Len(t, res.Questions, 1)
	assert.Equal(t, id, res.Questions[0].ID)
	assert.Equal(t, "Paper 9", res.Questions[0].Bucket)

	names, source, err := s.Buckets(ctx, model.Filter{Subject: "physics", Year: 2024, Mode: model.ModeChapters})
	require.NoError(t, err)
	assert.Equal(t, AuthorityRemote, source)
	assert.Equal(t, []string{"Kinematics", "NLM"}, names)

	require.NoError(t, s.Delete(ctx, id))
	assert.ErrorIs(t, s.Delete(ctx, id), apperr.ErrNotFound)

	res, err = s.Query(ctx, model.Filter{Subject: "biology"})
	require.NoError(t, err)
	assert.Empty(t, res.Questions)
}

func TestSession_RemoteUpload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.open(t, remoteConfig(), startServer(t), nil)
	require.NoError(t, s.Login(ctx, testIdentity, testSecret))

	asset, err := s.Upload(ctx, pngUpload("my sol.png"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(asset.URL, testBackend+"/assets/solutions/"), asset.URL)
	assert.True(t, strings.HasSuffix(asset.StoragePath, "-my_sol.png"), asset.StoragePath)
	assert.Equal(t, "image/png", asset.ContentType)

	_, err = s.Upload(ctx, model.UploadRequest{ImageData: "!!!", FileName: "x.png"})
	assert.ErrorIs(t, err, apperr.ErrUpload)

	_, err = s.Upload(ctx, model.UploadRequest{FileName: "x.png"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSession_ReadsFallBackToReplica(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	core, logs := observer.New(zap.WarnLevel)
	s := f.open(t, remoteConfig(), unreachableRemote(), zap.New(core))

	res, err := s.Query(ctx, model.Filter{Subject: "physics", Year: 2024, Mode: model.ModeChapters, Bucket: "Kinematics"})
	require.NoError(t, err)
	assert.Equal(t, AuthorityReplica, res.Source)
	require.Len(t, res.Questions, 2)
	assert.Equal(t, "2as", res.Questions[1].Solution)
	assert.Equal(t, 1, logs.FilterMessage("remote_unavailable").Len())

	names, source, err := s.Buckets(ctx, model.Filter{Subject: "physics", Year: 2024, Mode: model.ModePapers})
	require.NoError(t, err)
	assert.Equal(t, AuthorityReplica, source)
	assert.Equal(t, []string{"Paper 1", "Paper 2"}, names)
}

func TestSession_WritesNeverFallBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.open(t, remoteConfig(), unreachableRemote(), nil)

	assert.ErrorIs(t, s.Login(ctx, testIdentity, testSecret), ErrUnavailable)
	assert.False(t, s.LoggedIn())

	_, err := s.Insert(ctx, physicsQuestion("Q?"))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, s.Delete(ctx, "r-0000000000000000"), ErrUnavailable)
	_, err = s.Upload(ctx, pngUpload("a.png"))
	assert.ErrorIs(t, err, ErrUnavailable)

	res, err := s.Query(ctx, model.Filter{Subject: "physics", Bucket: "Kinematics"})
	require.NoError(t, err)
	assert.Len(t, res.Questions, 2, "replica must not have received the insert")
}

func TestSession_NonEnvelopeResponseIsUnavailable(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/questions", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusBadGateway).SendString("<html>bad gateway</html>")
	})
	ln := fasthttputil.NewInmemoryListener()
	go app.Listener(ln)
	t.Cleanup(func() { _ = app.Shutdown() })

	r := NewRemote(testBackend, time.Second, WithDial(func(string) (net.Conn, error) { return ln.Dial() }))
	_, err := r.Query(context.Background(), model.Filter{})
	assert.ErrorIs(t, err, apperr.ErrUnavailable)

	f := newFixture(t)
	s := f.open(t, remoteConfig(), r, nil)
	res, err := s.Query(context.Background(), model.Filter{Subject: "physics"})
	require.NoError(t, err)
	assert.Equal(t, AuthorityReplica, res.Source)
}

func TestSession_LocalOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.open(t, localConfig(), nil, nil)
	assert.Equal(t, AuthorityReplica, s.Authority())

	_, err := f.store.Get(ctx, localstore.KeyReplica)
	require.NoError(t, err, "local-only open seeds the replica")

	assert.ErrorIs(t, s.Login(ctx, testIdentity, "nope"), apperr.ErrAuthentication)
	require.NoError(t, s.Login(ctx, testIdentity, testSecret))

	id, err := s.Insert(ctx, physicsQuestion("Define displacement."))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, replica.IDPrefix), id)

	res, err := s.Query(ctx, model.Filter{Subject: "physics", Bucket: "Kinematics"})
	require.NoError(t, err)
	assert.Equal(t, AuthorityReplica, res.Source)
	require.Len(t, res.Questions, 3)
	assert.Equal(t, "Define displacement.", res.Questions[2].Question)

	require.NoError(t, s.Delete(ctx, id))
	assert.ErrorIs(t, s.Delete(ctx, id), apperr.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "not-a-replica-id"), apperr.ErrNotFound)

	asset, err := s.Upload(ctx, pngUpload("graph.png"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(asset.URL, "file://"), asset.URL)
	ok, err := afero.Exists(f.fs, "/home/.examia/assets/"+asset.StoragePath)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSession_CapabilityPersistence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	remote := startServer(t)

	s := f.open(t, remoteConfig(), remote, nil)
	require.NoError(t, s.Login(ctx, testIdentity, testSecret))
	require.NoError(t, s.Close())

	s = f.open(t, remoteConfig(), remote, nil)
	assert.True(t, s.LoggedIn())
	_, err := s.Insert(ctx, physicsQuestion("restored?"))
	assert.NoError(t, err)

	t.Run("other backend ignores the record", func(t *testing.T) {
		cfg := remoteConfig()
		cfg.BackendURL = "http://elsewhere.examia.test"
		other := f.open(t, cfg, remote, nil)
		assert.False(t, other.LoggedIn())
	})

	t.Run("other authority ignores the record", func(t *testing.T) {
		other := f.open(t, localConfig(), nil, nil)
		assert.False(t, other.LoggedIn())
		_, err := other.Insert(ctx, physicsQuestion("Q"))
		assert.ErrorIs(t, err, apperr.ErrAuthorization)
	})

	t.Run("logout clears the record", func(t *testing.T) {
		require.NoError(t, s.Logout(ctx))
		assert.False(t, s.LoggedIn())
		_, err := f.store.Get(ctx, localstore.KeySession)
		assert.ErrorIs(t, err, localstore.ErrNotFound)

		again := f.open(t, remoteConfig(), remote, nil)
		assert.False(t, again.LoggedIn())
	})
}

func TestSession_InsertWithImage(t *testing.T) {
	ctx := context.Background()

	t.Run("requires capability", func(t *testing.T) {
		f := newFixture(t)
		s := f.open(t, localConfig(), nil, nil)
		_, asset, err := s.InsertWithImage(ctx, physicsQuestion("Q"), pngUpload("a.png"))
		assert.ErrorIs(t, err, apperr.ErrAuthorization)
		assert.Nil(t, asset)
	})

	t.Run("validates before upload", func(t *testing.T) {
		f := newFixture(t)
		s := f.open(t, localConfig(), nil, nil)
		require.NoError(t, s.Login(ctx, testIdentity, testSecret))

		q := physicsQuestion("Q")
		q.Mode = "quizzes"
		_, asset, err := s.InsertWithImage(ctx, q, pngUpload("a.png"))
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.Nil(t, asset)

		entries, err := afero.ReadDir(f.fs, "/home/.examia/assets")
		require.NoError(t, err)
		assert.Empty(t, entries, "nothing may be uploaded for an invalid question")
	})

	t.Run("links the uploaded image", func(t *testing.T) {
		f := newFixture(t)
		s := f.open(t, localConfig(), nil, nil)
		require.NoError(t, s.Login(ctx, testIdentity, testSecret))

		id, asset, err := s.InsertWithImage(ctx, physicsQuestion("With figure"), pngUpload("fig.png"))
		require.NoError(t, err)
		require.NotNil(t, asset)

		res, err := s.Query(ctx, model.Filter{Subject: "physics", Bucket: "Kinematics"})
		require.NoError(t, err)
		var found *model.Question
		for i := range res.Questions {
			if res.Questions[i].ID == id {
				found = &res.Questions[i]
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, asset.URL, found.SolutionImage)
	})

	t.Run("insert failure leaves the asset", func(t *testing.T) {
		f := newFixture(t)
		failing := &failingStore{Store: f.store}
		f.store = failing
		f.rep = replica.NewManager(failing, baseline(t), nil)
		core, logs := observer.New(zap.WarnLevel)
		s := f.open(t, localConfig(), nil, zap.New(core))
		require.NoError(t, s.Login(ctx, testIdentity, testSecret))

		failing.failReplicaWrites = true
		id, asset, err := s.InsertWithImage(ctx, physicsQuestion("Q"), pngUpload("orphan.png"))
		assert.Error(t, err)
		assert.Empty(t, id)
		require.NotNil(t, asset)

		ok, _ := afero.Exists(f.fs, "/home/.examia/assets/"+asset.StoragePath)
		assert.True(t, ok, "asset must stay stored")
		require.Equal(t, 1, logs.FilterMessage("orphaned_asset").Len())
		assert.Equal(t, asset.StoragePath, logs.FilterMessage("orphaned_asset").All()[0].ContextMap()["storage_path"])
	})
}

func TestSession_ResetAndExportReplica(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.open(t, localConfig(), nil, nil)
	require.NoError(t, s.Login(ctx, testIdentity, testSecret))

	_, err := s.Insert(ctx, model.Question{Subject: "history", Year: 1999, Mode: model.ModePapers, Bucket: "P", Question: "When?"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.ExportReplica(ctx, &buf))
	exported, err := replica.Decode(buf.Bytes())
	require.NoError(t, err)
	history := exported.Entries("history", "1999", "papers", "P")
	require.Len(t, history, 1)
	assert.Equal(t, "When?", history[0].Question)

	require.NoError(t, s.ResetReplica(ctx))

	buf.Reset()
	require.NoError(t, s.ExportReplica(ctx, &buf))
	exported, err = replica.Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, f.rep.Baseline().Keys(), exported.Keys())
	assert.Nil(t, exported.Entries("history", "1999", "papers", "P"))
	kin := exported.Entries("physics", "2024", "chapters", "Kinematics")
	require.Len(t, kin, 2)
	assert.Equal(t, f.rep.Baseline().Entries("physics", "2024", "chapters", "Kinematics")[1].Question, kin[1].Question)

	res, err := s.Query(ctx, model.Filter{Subject: "history"})
	require.NoError(t, err)
	assert.Empty(t, res.Questions)
	assert.True(t, s.LoggedIn(), "reset keeps the capability")
}

// failingStore fails replica writes on demand.
type failingStore struct {
	localstore.Store
	failReplicaWrites bool
}

func (s *failingStore) Put(ctx context.Context, key string, value []byte) error {
	if s.failReplicaWrites && key == localstore.KeyReplica {
		return errors.New("disk full")
	}
	return s.Store.Put(ctx, key, value)
}
