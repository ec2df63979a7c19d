package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/repository"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

// ─── Users ──────────────────────────────────────────────────────────

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int]*model.User
	next  int
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[int]*model.User{}}
	for _, u := range users {
		r.next++
		u.ID = r.next
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) List(_ context.Context, f model.ListFilter) ([]model.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, u := range r.users {
		if f.Search == "" || strings.Contains(u.Username, f.Search) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return repository.ErrDuplicateUsername
		}
	}
	r.next++
	u.ID = r.next
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	hash := existing.PasswordHash
	cp := *u
	cp.PasswordHash = hash
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id int, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// ─── Master data ────────────────────────────────────────────────────

type fakeMasterRepo struct {
	mu   sync.Mutex
	rows map[model.MasterEntity][]model.MasterRecord
	next int
}

func newFakeMasterRepo() *fakeMasterRepo {
	return &fakeMasterRepo{rows: map[model.MasterEntity][]model.MasterRecord{}}
}

func (r *fakeMasterRepo) List(ctx context.Context, info model.MasterEntityInfo, _ model.ListFilter) ([]model.MasterRecord, int, error) {
	all, _ := r.All(ctx, info)
	return all, len(all), nil
}

func (r *fakeMasterRepo) All(_ context.Context, info model.MasterEntityInfo) ([]model.MasterRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.MasterRecord(nil), r.rows[info.Entity]...), nil
}

func (r *fakeMasterRepo) GetByID(_ context.Context, info model.MasterEntityInfo, id int) (*model.MasterRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.rows[info.Entity] {
		if rec.ID == id {
			return &rec, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeMasterRepo) GetByCode(_ context.Context, info model.MasterEntityInfo, code string) (*model.MasterRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.rows[info.Entity] {
		if rec.Code == code {
			return &rec, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeMasterRepo) Create(_ context.Context, info model.MasterEntityInfo, rec *model.MasterRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows[info.Entity] {
		if existing.Code == rec.Code {
			return repository.ErrDuplicateCode
		}
	}
	r.next++
	rec.ID = r.next
	r.rows[info.Entity] = append(r.rows[info.Entity], *rec)
	return nil
}

func (r *fakeMasterRepo) Update(_ context.Context, info model.MasterEntityInfo, rec *model.MasterRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.rows[info.Entity] {
		if existing.ID == rec.ID {
			r.rows[info.Entity][i] = *rec
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeMasterRepo) UpsertByCode(_ context.Context, info model.MasterEntityInfo, rec *model.MasterRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.rows[info.Entity] {
		if existing.Code == rec.Code {
			rec.ID = existing.ID
			r.rows[info.Entity][i] = *rec
			return false, nil
		}
	}
	r.next++
	rec.ID = r.next
	r.rows[info.Entity] = append(r.rows[info.Entity], *rec)
	return true, nil
}

func (r *fakeMasterRepo) Delete(_ context.Context, info model.MasterEntityInfo, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.rows[info.Entity]
	for i, existing := range rows {
		if existing.ID == id {
			r.rows[info.Entity] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// ─── Items ──────────────────────────────────────────────────────────

type fakeItemRepo struct {
	mu    sync.Mutex
	items []model.Item
	next  int
}

func (r *fakeItemRepo) List(ctx context.Context, _ model.ListFilter) ([]model.Item, int, error) {
	all, _ := r.All(ctx)
	return all, len(all), nil
}

func (r *fakeItemRepo) All(_ context.Context) ([]model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Item(nil), r.items...), nil
}

func (r *fakeItemRepo) GetByID(_ context.Context, id int) (*model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.ID == id {
			return &it, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeItemRepo) Create(_ context.Context, it *model.Item) error {
	_, err := r.UpsertByCode(context.Background(), it)
	return err
}

func (r *fakeItemRepo) Update(_ context.Context, it *model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.items {
		if existing.ID == it.ID {
			r.items[i] = *it
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeItemRepo) UpsertByCode(_ context.Context, it *model.Item) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.items {
		if existing.Code == it.Code {
			issued := existing.TotalQuantity - existing.AvailableQuantity
			if it.TotalQuantity < issued {
				return false, repository.ErrInsufficientStock
			}
			it.ID = existing.ID
			it.AvailableQuantity = it.TotalQuantity - issued
			r.items[i] = *it
			return false, nil
		}
	}
	r.next++
	it.ID = r.next
	it.AvailableQuantity = it.TotalQuantity
	r.items = append(r.items, *it)
	return true, nil
}

func (r *fakeItemRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.items {
		if existing.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// ─── Issues ─────────────────────────────────────────────────────────

type fakeIssueRepo struct {
	mu        sync.Mutex
	available map[int]int
	issues    []model.Issue
	returns   []model.ReturnRecord
}

func (r *fakeIssueRepo) Create(_ context.Context, is *model.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.issues {
		if existing.IssueNo == is.IssueNo {
			return repository.ErrDuplicateIssueNo
		}
	}
	avail, ok := r.available[is.ItemID]
	if !ok {
		return repository.ErrNotFound
	}
	if avail < is.Quantity {
		return repository.ErrInsufficientStock
	}
	r.available[is.ItemID] = avail - is.Quantity
	is.ID = len(r.issues) + 1
	is.State = model.IssueStateIssued
	is.IssuedAt = time.Now()
	r.issues = append(r.issues, *is)
	return nil
}

func (r *fakeIssueRepo) GetByID(_ context.Context, id int) (*model.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 1 || id > len(r.issues) {
		return nil, repository.ErrNotFound
	}
	is := r.issues[id-1]
	return &is, nil
}

func (r *fakeIssueRepo) List(_ context.Context, f model.IssueFilter) ([]model.Issue, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Issue
	for _, is := range r.issues {
		if f.State == "" || is.State == f.State {
			out = append(out, is)
		}
	}
	return out, len(out), nil
}

func (r *fakeIssueRepo) CreateReturn(_ context.Context, ret *model.ReturnRecord) (*model.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ret.IssueID < 1 || ret.IssueID > len(r.issues) {
		return nil, repository.ErrNotFound
	}
	is := &r.issues[ret.IssueID-1]
	if ret.Quantity > is.Outstanding() {
		return nil, repository.ErrReturnExceedsOutstanding
	}
	is.ReturnedQuantity += ret.Quantity
	is.State = model.IssueStatePartial
	if is.Outstanding() == 0 {
		is.State = model.IssueStateReturned
	}
	r.available[is.ItemID] += ret.Quantity
	ret.ID = len(r.returns) + 1
	ret.IssueNo = is.IssueNo
	r.returns = append(r.returns, *ret)
	cp := *is
	return &cp, nil
}

func (r *fakeIssueRepo) ListReturns(_ context.Context, _ model.IssueFilter) ([]model.ReturnRecord, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ReturnRecord(nil), r.returns...), len(r.returns), nil
}

func (r *fakeIssueRepo) LastIssueSeq(_ context.Context, prefix string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	last := 0
	for _, is := range r.issues {
		if !strings.HasPrefix(is.IssueNo, prefix) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(is.IssueNo, prefix)); err == nil && n > last {
			last = n
		}
	}
	return last, nil
}

func (r *fakeIssueRepo) ListOverdue(_ context.Context, now time.Time, afterID, limit int) ([]model.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Issue
	for _, is := range r.issues {
		if is.ID <= afterID {
			continue
		}
		if is.State != model.IssueStateReturned && is.ExpectedReturnAt != nil && is.ExpectedReturnAt.Before(now) {
			out = append(out, is)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ─── Settings ───────────────────────────────────────────────────────

type fakeSettingRepo struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

func newFakeSettingRepo(values map[string]string) *fakeSettingRepo {
	if values == nil {
		values = map[string]string{}
	}
	return &fakeSettingRepo{values: values}
}

func (r *fakeSettingRepo) GetAll(_ context.Context) ([]model.AppSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AppSetting, 0, len(r.values))
	for k, v := range r.values {
		out = append(out, model.AppSetting{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *fakeSettingRepo) GetByKey(_ context.Context, key string) (*model.AppSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &model.AppSetting{Key: key, Value: v}, nil
}

func (r *fakeSettingRepo) UpsertMany(_ context.Context, settings map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	for k, v := range settings {
		r.values[k] = v
	}
	return nil
}
