package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/thechallenge/internal/common"
	"github.com/dmitrijs2005/thechallenge/internal/dbx"
	"github.com/dmitrijs2005/thechallenge/internal/server/models"
	"github.com/dmitrijs2005/thechallenge/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/thechallenge/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/thechallenge/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/thechallenge/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// memStore is an in-memory stand-in for the four tables. fail maps an
// operation name such as "tasks.CreateBatch" to the error it should return.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	users      map[int64]models.User
	challenges map[int64]models.Challenge
	tasks      map[int64]models.Task
	tokens     map[string]models.RefreshToken
	fail       map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[int64]models.User{},
		challenges: map[int64]models.Challenge{},
		tasks:      map[int64]models.Task{},
		tokens:     map[string]models.RefreshToken{},
		fail:       map[string]error{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) tasksOf(challengeID int64) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.ChallengeID == challengeID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memRepoManager struct{ s *memStore }

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memRepoManager) Users(dbx.DBTX) users.Repository              { return &memUsers{m.s} }
func (m *memRepoManager) Challenges(dbx.DBTX) challenges.Repository    { return &memChallenges{m.s} }
func (m *memRepoManager) Tasks(dbx.DBTX) tasks.Repository              { return &memTasks{m.s} }
func (m *memRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return &memTokens{m.s}
}

type memUsers struct{ s *memStore }

func (r *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["users.Create"]; err != nil {
		return nil, err
	}
	for _, other := range r.s.users {
		if other.Email == u.Email {
			return nil, common.ErrEmailTaken
		}
	}
	u.ID = r.s.id()
	u.CreatedAt = time.Now()
	r.s.users[u.ID] = *u
	return u, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["users.GetByEmail"]; err != nil {
		return nil, err
	}
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *memUsers) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.users, id)
	for cid, c := range r.s.challenges {
		if c.UserID == id {
			r.s.deleteChallengeLocked(cid)
		}
	}
	for tok, rt := range r.s.tokens {
		if rt.UserID == id {
			delete(r.s.tokens, tok)
		}
	}
	return nil
}

func (s *memStore) deleteChallengeLocked(id int64) {
	delete(s.challenges, id)
	for tid, t := range s.tasks {
		if t.ChallengeID == id {
			delete(s.tasks, tid)
		}
	}
}

type memChallenges struct{ s *memStore }

func (r *memChallenges) Create(_ context.Context, c *models.Challenge) (*models.Challenge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["challenges.Create"]; err != nil {
		return nil, err
	}
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.challenges[c.ID] = *c
	return c, nil
}

func (r *memChallenges) GetByID(_ context.Context, id int64) (*models.Challenge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["challenges.GetByID"]; err != nil {
		return nil, err
	}
	c, ok := r.s.challenges[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &c, nil
}

func (r *memChallenges) ListByUser(_ context.Context, userID int64) ([]*models.Challenge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["challenges.ListByUser"]; err != nil {
		return nil, err
	}
	var out []*models.Challenge
	for _, c := range r.s.challenges {
		if c.UserID == userID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memChallenges) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.challenges[id]; !ok {
		return common.ErrorNotFound
	}
	r.s.deleteChallengeLocked(id)
	return nil
}

type memTasks struct{ s *memStore }

func (r *memTasks) CreateBatch(_ context.Context, list []*models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["tasks.CreateBatch"]; err != nil {
		return err
	}
	for _, t := range list {
		t.ID = r.s.id()
		r.s.tasks[t.ID] = *t
	}
	return nil
}

func (r *memTasks) Create(_ context.Context, t *models.Task) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["tasks.Create"]; err != nil {
		return nil, err
	}
	t.ID = r.s.id()
	r.s.tasks[t.ID] = *t
	return t, nil
}

func (r *memTasks) GetByID(_ context.Context, id int64) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *memTasks) ListByChallenge(_ context.Context, challengeID int64) ([]*models.Task, error) {
	if err := r.s.fail["tasks.ListByChallenge"]; err != nil {
		return nil, err
	}
	list := r.s.tasksOf(challengeID)
	sort.SliceStable(list, func(i, j int) bool { return list[i].DayNumber < list[j].DayNumber })
	out := make([]*models.Task, len(list))
	for i := range list {
		out[i] = &list[i]
	}
	return out, nil
}

func (r *memTasks) ToggleCompleted(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return false, common.ErrorNotFound
	}
	t.IsCompleted = !t.IsCompleted
	r.s.tasks[id] = t
	return t.IsCompleted, nil
}

func (r *memTasks) DeleteNonFixed(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return common.ErrorNotFound
	}
	if t.IsFixed {
		return common.ErrProtected
	}
	delete(r.s.tasks, id)
	return nil
}

type memTokens struct{ s *memStore }

func (r *memTokens) Create(_ context.Context, userID int64, token string, expires time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["tokens.Create"]; err != nil {
		return err
	}
	r.s.tokens[token] = models.RefreshToken{ID: r.s.id(), UserID: userID, Token: token, Expires: expires}
	return nil
}

func (r *memTokens) Consume(_ context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["tokens.Consume"]; err != nil {
		return nil, err
	}
	rt, ok := r.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(r.s.tokens, token)
	return &rt, nil
}

func (r *memTokens) Delete(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["tokens.Delete"]; err != nil {
		return err
	}
	delete(r.s.tokens, token)
	return nil
}

func (r *memTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for tok, rt := range r.s.tokens {
		if rt.Expires.Before(now) {
			delete(r.s.tokens, tok)
			n++
		}
	}
	return n, nil
}

// newMockDB returns a sqlmock-backed *sql.DB. Only transaction boundaries
// reach it; the repositories are in memory.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func expectCommit(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

func expectRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// seedChallenge stores a challenge with a fixed grid directly, bypassing
// the materializer.
func seedChallenge(s *memStore, ownerID int64, start time.Time, duration int, names ...string) models.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := models.Challenge{ID: s.id(), UserID: ownerID, Name: "seed", StartDate: models.NewDate(start), DurationDays: duration}
	s.challenges[c.ID] = c
	for day := 1; day <= duration; day++ {
		for _, n := range names {
			t := models.Task{ID: s.id(), ChallengeID: c.ID, Name: n, DayNumber: day, IsFixed: true}
			s.tasks[t.ID] = t
		}
	}
	return c
}

func seedTask(s *memStore, challengeID int64, day int, name string, fixed bool) models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := models.Task{ID: s.id(), ChallengeID: challengeID, Name: name, DayNumber: day, IsFixed: fixed}
	s.tasks[t.ID] = t
	return t
}
