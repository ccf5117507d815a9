package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"cumulus/internal/domain"
	"cumulus/internal/domain/models"
	"cumulus/internal/domain/repositories"
	"cumulus/internal/domain/services"
)

// In-memory repository fakes shared by the service tests. They mirror
// the contracts of the postgres implementations closely enough that a
// service behaving correctly against them behaves correctly in
// production, minus SQL-level concerns.

type fakeEntityRepo struct {
	mu       sync.Mutex
	entities map[string]models.Entity
	order    []string // insertion order for ChildIDs
}

func newFakeEntityRepo() *fakeEntityRepo {
	return &fakeEntityRepo{entities: make(map[string]models.Entity)}
}

func (r *fakeEntityRepo) Create(ctx context.Context, entity *models.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[entity.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.entities[entity.ID] = *entity
	r.order = append(r.order, entity.ID)
	return nil
}

func (r *fakeEntityRepo) GetByID(ctx context.Context, id string) (*models.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", id, domain.ErrNotFound)
	}
	copy := e
	return &copy, nil
}

func (r *fakeEntityRepo) Update(ctx context.Context, entity *models.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[entity.ID]; !ok {
		return fmt.Errorf("entity %s: %w", entity.ID, domain.ErrNotFound)
	}
	r.entities[entity.ID] = *entity
	return nil
}

func (r *fakeEntityRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entities, id)
	return nil
}

func (r *fakeEntityRepo) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok {
		return fmt.Errorf("entity %s: %w", id, domain.ErrNotFound)
	}
	e.IsActive = active
	r.entities[id] = e
	return nil
}

func (r *fakeEntityRepo) ChildIDs(ctx context.Context, parentID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, id := range r.order {
		e, ok := r.entities[id]
		if ok && e.ParentID != nil && *e.ParentID == parentID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeEntityRepo) ListChildren(ctx context.Context, parentID string) ([]models.Entity, error) {
	ids, _ := r.ChildIDs(ctx, parentID)
	r.mu.Lock()
	defer r.mu.Unlock()
	children := make([]models.Entity, 0, len(ids))
	for _, id := range ids {
		children = append(children, r.entities[id])
	}
	return children, nil
}

func (r *fakeEntityRepo) Ancestors(ctx context.Context, id string) ([]models.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var chain []models.Entity
	e, ok := r.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", id, domain.ErrNotFound)
	}
	for e.ParentID != nil {
		parent, ok := r.entities[*e.ParentID]
		if !ok {
			break
		}
		chain = append(chain, parent)
		e = parent
	}
	return chain, nil
}

func (r *fakeEntityRepo) FindSibling(ctx context.Context, key repositories.SiblingKey, title string) (*models.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entities {
		if r.inScope(e, key) && e.Title == title {
			copy := e
			return &copy, nil
		}
	}
	return nil, nil
}

func (r *fakeEntityRepo) SiblingTitles(ctx context.Context, key repositories.SiblingKey) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var titles []string
	for _, e := range r.entities {
		if r.inScope(e, key) {
			titles = append(titles, e.Title)
		}
	}
	sort.Strings(titles)
	return titles, nil
}

func (r *fakeEntityRepo) inScope(e models.Entity, key repositories.SiblingKey) bool {
	if !e.IsActive || e.ParentID == nil || *e.ParentID != key.ParentID || e.IsGroup != key.IsGroup {
		return false
	}
	switch {
	case e.MimeType == nil && key.MimeType == nil:
		return true
	case e.MimeType != nil && key.MimeType != nil:
		return *e.MimeType == *key.MimeType
	default:
		return false
	}
}

func (r *fakeEntityRepo) ListOwned(ctx context.Context, owner string) ([]models.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.Entity
	for _, id := range r.order {
		e, ok := r.entities[id]
		if ok && e.Owner == owner && e.IsActive {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *fakeEntityRepo) ListByIDs(ctx context.Context, ids []string) ([]models.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.Entity
	for _, id := range ids {
		if e, ok := r.entities[id]; ok {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *fakeEntityRepo) GetRoot(ctx context.Context, owner string) (*models.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entities {
		if e.Owner == owner && e.ParentID == nil && e.IsGroup {
			copy := e
			return &copy, nil
		}
	}
	return nil, fmt.Errorf("root of %s: %w", owner, domain.ErrNotFound)
}

type permKey struct{ entityID, grantee string }

type fakePermissionRepo struct {
	mu    sync.Mutex
	perms map[permKey]models.Permission
}

func newFakePermissionRepo() *fakePermissionRepo {
	return &fakePermissionRepo{perms: make(map[permKey]models.Permission)}
}

func (r *fakePermissionRepo) Get(ctx context.Context, entityID, grantee string) (*models.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.perms[permKey{entityID, grantee}]
	if !ok {
		return nil, nil
	}
	copy := p
	return &copy, nil
}

func (r *fakePermissionRepo) Upsert(ctx context.Context, perm *models.Permission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.perms[permKey{perm.EntityID, perm.Grantee}] = *perm
	return nil
}

func (r *fakePermissionRepo) Delete(ctx context.Context, entityID, grantee string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.perms, permKey{entityID, grantee})
	return nil
}

func (r *fakePermissionRepo) DeleteForEntity(ctx context.Context, entityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.perms {
		if k.entityID == entityID {
			delete(r.perms, k)
		}
	}
	return nil
}

func (r *fakePermissionRepo) ListForEntity(ctx context.Context, entityID string) ([]models.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.Permission
	for k, p := range r.perms {
		if k.entityID == entityID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Grantee < result[j].Grantee })
	return result, nil
}

func (r *fakePermissionRepo) ListForGrantee(ctx context.Context, grantee string) ([]models.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.Permission
	for k, p := range r.perms {
		if k.grantee == grantee {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EntityID < result[j].EntityID })
	return result, nil
}

type fakeDocumentRepo struct {
	mu   sync.Mutex
	docs map[string]models.Document
	seq  int
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: make(map[string]models.Document)}
}

func (r *fakeDocumentRepo) Create(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = *doc
	return nil
}

func (r *fakeDocumentRepo) GetByID(ctx context.Context, id string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	copy := d
	return &copy, nil
}

func (r *fakeDocumentRepo) Duplicate(ctx context.Context, id, newTitle string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.docs[id]
	if !ok {
		return "", fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	r.seq++
	newID := fmt.Sprintf("doc-copy-%d", r.seq)
	dup := src
	dup.ID = newID
	dup.Title = newTitle
	r.docs[newID] = dup
	return newID, nil
}

func (r *fakeDocumentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

type fakeActivityRepo struct {
	mu      sync.Mutex
	entries []models.Activity
}

func (r *fakeActivityRepo) Append(ctx context.Context, activity *models.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *activity)
	return nil
}

func (r *fakeActivityRepo) ListForEntity(ctx context.Context, entityID string) ([]models.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.Activity
	for _, a := range r.entries {
		if a.EntityID == entityID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (r *fakeActivityRepo) DeleteForEntity(ctx context.Context, entityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.entries[:0]
	for _, a := range r.entries {
		if a.EntityID != entityID {
			kept = append(kept, a)
		}
	}
	r.entries = kept
	return nil
}

type fakeCascadeRepo struct {
	mu      sync.Mutex
	deleted []string
}

func (r *fakeCascadeRepo) DeleteForEntity(ctx context.Context, entityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, entityID)
	return nil
}

// fakeTxManager runs the function directly; the fakes have no
// transactional isolation so rollback semantics are not exercised.
type fakeTxManager struct{}

func (fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

type fakeContentStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{blobs: make(map[string][]byte)}
}

func (s *fakeContentStore) Write(ctx context.Context, key string, content io.Reader) (int64, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return int64(len(data)), nil
}

func (s *fakeContentStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[srcKey]
	if !ok {
		return fmt.Errorf("source key %s: %w", srcKey, domain.ErrNotFound)
	}
	s.blobs[dstKey] = append([]byte(nil), data...)
	return nil
}

func (s *fakeContentStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("key %s: %w", key, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeContentStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *fakeContentStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

type nopThumbnailer struct {
	mu       sync.Mutex
	enqueued []services.ThumbnailJob
}

func (n *nopThumbnailer) Enqueue(job services.ThumbnailJob) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enqueued = append(n.enqueued, job)
}

func (n *nopThumbnailer) DeleteThumbnail(ctx context.Context, entityID string) error {
	return nil
}

// harness bundles everything a service test needs.
type harness struct {
	entities   *fakeEntityRepo
	perms      *fakePermissionRepo
	docs       *fakeDocumentRepo
	activities *fakeActivityRepo
	favorites  *fakeCascadeRepo
	notifs     *fakeCascadeRepo
	store      *fakeContentStore
	thumbs     *nopThumbnailer

	access  services.AccessResolver
	home    services.HomeResolver
	shares  services.ShareManager
	tree    services.TreeMutator
	listing services.ListingService
}

func newHarness() *harness {
	logger := slog.New(slog.DiscardHandler)

	h := &harness{
		entities:   newFakeEntityRepo(),
		perms:      newFakePermissionRepo(),
		docs:       newFakeDocumentRepo(),
		activities: &fakeActivityRepo{},
		favorites:  &fakeCascadeRepo{},
		notifs:     &fakeCascadeRepo{},
		store:      newFakeContentStore(),
		thumbs:     &nopThumbnailer{},
	}

	tx := fakeTxManager{}
	h.access = NewAccessResolver(h.entities, h.perms, logger)
	h.home = NewHomeResolver(h.entities, logger)
	h.shares = NewShareManager(h.entities, h.perms, h.access, tx, logger)
	h.tree = NewTreeMutator(
		h.entities, h.perms, h.docs,
		h.activities, h.favorites, h.notifs,
		h.access, h.home, h.store, h.thumbs,
		tx, logger,
	)
	h.listing = NewListingService(h.entities, h.perms, h.docs, h.access, logger)
	return h
}

// seed helpers

func (h *harness) mustFolder(t testingT, id, owner string, parentID *string, title string) *models.Entity {
	t.Helper()
	e := &models.Entity{
		ID: id, Title: title, ParentID: parentID,
		IsGroup: true, Owner: owner, IsActive: true,
		AllowComments: true, AllowDownload: true,
	}
	if err := h.entities.Create(context.Background(), e); err != nil {
		t.Fatalf("seed folder %s: %v", id, err)
	}
	return e
}

func (h *harness) mustFile(t testingT, id, owner string, parentID *string, title, mimeType string) *models.Entity {
	t.Helper()
	e := &models.Entity{
		ID: id, Title: title, ParentID: parentID,
		Owner: owner, IsActive: true, MimeType: &mimeType,
		AllowComments: true, AllowDownload: true,
	}
	if err := h.entities.Create(context.Background(), e); err != nil {
		t.Fatalf("seed file %s: %v", id, err)
	}
	return e
}

func (h *harness) mustGrant(t testingT, entityID, grantee string, caps models.Capabilities) {
	t.Helper()
	err := h.perms.Upsert(context.Background(), &models.Permission{
		ID: entityID + ":" + grantee, EntityID: entityID, Grantee: grantee,
		Capabilities: caps,
	})
	if err != nil {
		t.Fatalf("seed grant %s/%s: %v", entityID, grantee, err)
	}
}

// testingT is the subset of *testing.T the seed helpers need.
type testingT interface {
	Helper()
	Fatalf(format string, args ...interface{})
}
