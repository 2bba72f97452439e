package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/apperrors"
	"github.com/Zaad1704/HNV1-sub001/internal/models"
	"github.com/Zaad1704/HNV1-sub001/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory stand-ins for the Mongo stores. They follow the same error
// contracts so the services can be exercised without a database.

type periodKey struct {
	org primitive.ObjectID
	key models.PeriodKey
}

type fakePeriodStore struct {
	mu      sync.Mutex
	periods map[periodKey]models.RentCollectionPeriod
	inserts int
}

func newFakePeriodStore() *fakePeriodStore {
	return &fakePeriodStore{periods: make(map[periodKey]models.RentCollectionPeriod)}
}

func clonePeriod(p models.RentCollectionPeriod) *models.RentCollectionPeriod {
	p.Tenants = append([]models.TenantCollectionRow(nil), p.Tenants...)
	return &p
}

func (f *fakePeriodStore) put(p models.RentCollectionPeriod) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.periods[periodKey{p.OrganizationID, p.Period}] = *clonePeriod(p)
}

func (f *fakePeriodStore) Insert(ctx context.Context, p *models.RentCollectionPeriod) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := periodKey{p.OrganizationID, p.Period}
	if _, ok := f.periods[k]; ok {
		return &apperrors.DuplicatePeriodError{OrganizationID: p.OrganizationID.Hex(), Year: p.Period.Year, Month: p.Period.Month}
	}
	f.periods[k] = *clonePeriod(*p)
	f.inserts++
	return nil
}

func (f *fakePeriodStore) Find(ctx context.Context, orgID primitive.ObjectID, key models.PeriodKey) (*models.RentCollectionPeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.periods[periodKey{orgID, key}]
	if !ok {
		return nil, apperrors.NotFound("collection period", key.String())
	}
	return clonePeriod(p), nil
}

func (f *fakePeriodStore) ReplaceIfVersion(ctx context.Context, p *models.RentCollectionPeriod, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := periodKey{p.OrganizationID, p.Period}
	cur, ok := f.periods[k]
	if !ok || cur.ID != p.ID || cur.Version != expectedVersion {
		return &apperrors.ConflictError{Resource: "collection period", ID: p.ID.Hex()}
	}
	f.periods[k] = *clonePeriod(*p)
	return nil
}

func (f *fakePeriodStore) all(orgID primitive.ObjectID) []models.RentCollectionPeriod {
	var out []models.RentCollectionPeriod
	for k, p := range f.periods {
		if k.org == orgID {
			out = append(out, *clonePeriod(p))
		}
	}
	return out
}

func (f *fakePeriodStore) ListGeneratedBetween(ctx context.Context, orgID primitive.ObjectID, from, to time.Time) ([]models.RentCollectionPeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.RentCollectionPeriod{}
	for _, p := range f.all(orgID) {
		if !p.GeneratedAt.Before(from) && !p.GeneratedAt.After(to) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	return out, nil
}

func (f *fakePeriodStore) ListFromPeriod(ctx context.Context, orgID primitive.ObjectID, from models.PeriodKey) ([]models.RentCollectionPeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.RentCollectionPeriod{}
	for _, p := range f.all(orgID) {
		if !p.Period.Before(from) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out, nil
}

func (f *fakePeriodStore) ListRecent(ctx context.Context, orgID primitive.ObjectID, limit int) ([]models.RentCollectionPeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.all(orgID)
	sort.Slice(out, func(i, j int) bool { return out[j].Period.Before(out[i].Period) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeTenantStore struct {
	tenants []models.Tenant
	err     error
}

func (f *fakeTenantStore) ListOccupiable(ctx context.Context, orgID primitive.ObjectID) ([]models.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Tenant{}
	for _, t := range f.tenants {
		if t.OrganizationID != orgID {
			continue
		}
		for _, s := range models.OccupiableTenantStatuses {
			if t.Status == s {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeTenantStore) OrganizationsWithOccupiable(ctx context.Context) ([]primitive.ObjectID, error) {
	seen := map[primitive.ObjectID]bool{}
	var out []primitive.ObjectID
	for _, t := range f.tenants {
		if !seen[t.OrganizationID] {
			seen[t.OrganizationID] = true
			out = append(out, t.OrganizationID)
		}
	}
	return out, nil
}

type fakePropertyStore struct {
	properties []models.Property
}

func (f *fakePropertyStore) ListByOrganization(ctx context.Context, orgID primitive.ObjectID) ([]models.Property, error) {
	out := []models.Property{}
	for _, p := range f.properties {
		if p.OrganizationID == orgID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakePaymentStore struct {
	payments []models.Payment
}

func (f *fakePaymentStore) ListSettled(ctx context.Context, orgID primitive.ObjectID, from, to models.PeriodKey) ([]models.Payment, error) {
	out := []models.Payment{}
	for _, p := range f.payments {
		k := p.EffectivePeriod()
		if p.OrganizationID == orgID && p.Settled() && !k.Before(from) && !to.Before(k) {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeCache implements both AnalyticsCache and CacheInvalidator.
type fakeCache struct {
	mu      sync.Mutex
	gens    map[string]int64
	entries map[string][]byte
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{gens: map[string]int64{}, entries: map[string][]byte{}}
}

func (c *fakeCache) Generation(ctx context.Context, orgID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[orgID], nil
}

func (c *fakeCache) Bump(ctx context.Context, orgID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[orgID]++
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.entries[key] = b
	c.sets++
	return nil
}

type fakeExportStore struct {
	mu   sync.Mutex
	reqs map[primitive.ObjectID]models.ExportRequest
}

func newFakeExportStore() *fakeExportStore {
	return &fakeExportStore{reqs: map[primitive.ObjectID]models.ExportRequest{}}
}

func (f *fakeExportStore) Create(ctx context.Context, req *models.ExportRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs[req.ID] = *req
	return nil
}

func (f *fakeExportStore) Get(ctx context.Context, id primitive.ObjectID) (*models.ExportRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reqs[id]
	if !ok {
		return nil, apperrors.NotFound("export request", id.Hex())
	}
	return &r, nil
}

func (f *fakeExportStore) update(id primitive.ObjectID, fn func(r *models.ExportRequest)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reqs[id]
	if !ok {
		return apperrors.NotFound("export request", id.Hex())
	}
	if r.Status.Terminal() {
		return &apperrors.ConflictError{Resource: "export request", ID: id.Hex()}
	}
	fn(&r)
	f.reqs[id] = r
	return nil
}

func (f *fakeExportStore) SetTaskID(ctx context.Context, id primitive.ObjectID, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.reqs[id]
	r.TaskID = taskID
	f.reqs[id] = r
	return nil
}

func (f *fakeExportStore) MarkProcessing(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.ExportRequest, error) {
	err := f.update(id, func(r *models.ExportRequest) {
		r.Status = models.ExportStatusProcessing
		r.Progress = 10
		r.StartedAt = &now
		r.UpdatedAt = now
	})
	if err != nil {
		return nil, err
	}
	return f.Get(ctx, id)
}

func (f *fakeExportStore) UpdateProgress(ctx context.Context, id primitive.ObjectID, progress int, now time.Time) error {
	return f.update(id, func(r *models.ExportRequest) {
		r.Progress = progress
		r.UpdatedAt = now
	})
}

func (f *fakeExportStore) MarkCompleted(ctx context.Context, id primitive.ObjectID, result models.ExportResult, now time.Time) error {
	return f.update(id, func(r *models.ExportRequest) {
		r.Status = models.ExportStatusCompleted
		r.Progress = 100
		r.Result = &result
		r.CompletedAt = &now
		r.UpdatedAt = now
	})
}

func (f *fakeExportStore) MarkFailed(ctx context.Context, id primitive.ObjectID, exportErr models.ExportError, now time.Time) error {
	return f.update(id, func(r *models.ExportRequest) {
		r.Status = models.ExportStatusFailed
		r.Error = &exportErr
		r.CompletedAt = &now
		r.UpdatedAt = now
	})
}

func (f *fakeExportStore) List(ctx context.Context, orgID primitive.ObjectID, limit int) ([]models.ExportRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ExportRequest{}
	for _, r := range f.reqs {
		if r.OrganizationID == orgID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeExportStore) ListExpired(ctx context.Context, now time.Time) ([]models.ExportRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ExportRequest{}
	for _, r := range f.reqs {
		if r.Result != nil && !r.Result.ExpiresAt.After(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeExportStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reqs[id]; !ok {
		return apperrors.NotFound("export request", id.Hex())
	}
	delete(f.reqs, id)
	return nil
}

type fakeExportSource struct {
	records []store.Record
	err     error
	calls   int
}

func (f *fakeExportSource) Fetch(ctx context.Context, exportType models.ExportType, orgID primitive.ObjectID, filters models.ExportFilters) ([]store.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeEnqueuer struct {
	queued []string
	err    error
}

func (f *fakeEnqueuer) EnqueueExport(ctx context.Context, requestID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.queued = append(f.queued, requestID)
	return "export:" + requestID, nil
}

var errBoom = errors.New("boom")
