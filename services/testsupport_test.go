package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ttleague/ladder-system/models"
	"github.com/ttleague/ladder-system/repositories"
)

// In-memory repositories for service tests. They mimic the postgres
// implementations: copies in, copies out, stable ordering, the same
// sentinel errors.

type memPlayerRepo struct {
	mu      sync.Mutex
	nextID  int
	players map[int]models.Player
}

func newMemPlayerRepo() *memPlayerRepo {
	return &memPlayerRepo{nextID: 1, players: map[int]models.Player{}}
}

func (r *memPlayerRepo) Create(_ context.Context, _ repositories.SQLExecutor, player *models.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.Name == player.Name {
			return repositories.ErrPlayerNameConflict
		}
	}
	player.ID = r.nextID
	r.nextID++
	r.players[player.ID] = *player
	return nil
}

func (r *memPlayerRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	return &p, nil
}

func (r *memPlayerRepo) List(_ context.Context, _ repositories.SQLExecutor) ([]*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Player, 0, len(r.players))
	for _, p := range r.players {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memPlayerRepo) Update(_ context.Context, _ repositories.SQLExecutor, player *models.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[player.ID]; !ok {
		return repositories.ErrPlayerNotFound
	}
	r.players[player.ID] = *player
	return nil
}

func (r *memPlayerRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[id]; !ok {
		return repositories.ErrPlayerNotFound
	}
	delete(r.players, id)
	return nil
}

type memRankingRepo struct {
	mu       sync.Mutex
	nextID   int
	rankings map[int]models.Ranking
}

func newMemRankingRepo() *memRankingRepo {
	return &memRankingRepo{nextID: 1, rankings: map[int]models.Ranking{}}
}

func (r *memRankingRepo) Create(_ context.Context, _ repositories.SQLExecutor, ranking *models.Ranking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rankings {
		if existing.Name == ranking.Name {
			return repositories.ErrRankingNameConflict
		}
	}
	ranking.ID = r.nextID
	r.nextID++
	r.rankings[ranking.ID] = *ranking
	return nil
}

func (r *memRankingRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Ranking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ranking, ok := r.rankings[id]
	if !ok {
		return nil, repositories.ErrRankingNotFound
	}
	return &ranking, nil
}

func (r *memRankingRepo) List(_ context.Context, _ repositories.SQLExecutor) ([]*models.Ranking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Ranking, 0, len(r.rankings))
	for _, ranking := range r.rankings {
		ranking := ranking
		out = append(out, &ranking)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRankingRepo) Update(_ context.Context, _ repositories.SQLExecutor, ranking *models.Ranking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rankings[ranking.ID]; !ok {
		return repositories.ErrRankingNotFound
	}
	r.rankings[ranking.ID] = *ranking
	return nil
}

func (r *memRankingRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rankings[id]; !ok {
		return repositories.ErrRankingNotFound
	}
	delete(r.rankings, id)
	return nil
}

func (r *memRankingRepo) ListExpired(_ context.Context, _ repositories.SQLExecutor, now time.Time) ([]*models.Ranking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Ranking
	for _, ranking := range r.rankings {
		if !ranking.Ended && ranking.EndsOn != nil && !ranking.EndsOn.After(now) {
			ranking := ranking
			out = append(out, &ranking)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRankingRepo) MarkEnded(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ranking, ok := r.rankings[id]
	if !ok {
		return repositories.ErrRankingNotFound
	}
	ranking.Ended = true
	r.rankings[id] = ranking
	return nil
}

type memStandingRepo struct {
	mu        sync.Mutex
	nextID    int
	standings map[int]models.Standing
}

func newMemStandingRepo() *memStandingRepo {
	return &memStandingRepo{nextID: 1, standings: map[int]models.Standing{}}
}

func (r *memStandingRepo) Create(_ context.Context, _ repositories.SQLExecutor, standing *models.Standing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.standings {
		if s.PlayerID == standing.PlayerID && s.RankingID == standing.RankingID {
			return repositories.ErrStandingConflict
		}
	}
	standing.ID = r.nextID
	r.nextID++
	r.standings[standing.ID] = *standing
	return nil
}

func (r *memStandingRepo) GetByPlayerAndRanking(_ context.Context, _ repositories.SQLExecutor, playerID, rankingID int) (*models.Standing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.standings {
		if s.PlayerID == playerID && s.RankingID == rankingID {
			s := s
			return &s, nil
		}
	}
	return nil, repositories.ErrStandingNotFound
}

func (r *memStandingRepo) GetByPosition(_ context.Context, _ repositories.SQLExecutor, rankingID, position int) (*models.Standing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.standings {
		if s.RankingID == rankingID && s.Position == position {
			s := s
			return &s, nil
		}
	}
	return nil, repositories.ErrStandingNotFound
}

func (r *memStandingRepo) ListByRanking(_ context.Context, _ repositories.SQLExecutor, rankingID int) ([]*models.Standing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Standing
	for _, s := range r.standings {
		if s.RankingID == rankingID {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memStandingRepo) ListByPlayer(_ context.Context, _ repositories.SQLExecutor, playerID int) ([]*models.Standing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Standing
	for _, s := range r.standings {
		if s.PlayerID == playerID {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memStandingRepo) MaxPosition(_ context.Context, _ repositories.SQLExecutor, rankingID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, s := range r.standings {
		if s.RankingID == rankingID && s.Position > max {
			max = s.Position
		}
	}
	return max, nil
}

func (r *memStandingRepo) Update(_ context.Context, _ repositories.SQLExecutor, standing *models.Standing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.standings[standing.ID]; !ok {
		return repositories.ErrStandingNotFound
	}
	r.standings[standing.ID] = *standing
	return nil
}

func (r *memStandingRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.standings[id]; !ok {
		return repositories.ErrStandingNotFound
	}
	delete(r.standings, id)
	return nil
}

func (r *memStandingRepo) DeleteByPlayerAndRanking(_ context.Context, _ repositories.SQLExecutor, playerID, rankingID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.standings {
		if s.PlayerID == playerID && s.RankingID == rankingID {
			delete(r.standings, id)
			return nil
		}
	}
	return repositories.ErrStandingNotFound
}

func (r *memStandingRepo) DeleteByRankingID(_ context.Context, _ repositories.SQLExecutor, rankingID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.standings {
		if s.RankingID == rankingID {
			delete(r.standings, id)
		}
	}
	return nil
}

type memBonusRepo struct {
	mu     sync.Mutex
	nextID int
	rules  map[int]models.BonusRule // keyed by player id
}

func newMemBonusRepo() *memBonusRepo {
	return &memBonusRepo{nextID: 1, rules: map[int]models.BonusRule{}}
}

func (r *memBonusRepo) GetByPlayerID(_ context.Context, _ repositories.SQLExecutor, playerID int) (*models.BonusRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[playerID]
	if !ok {
		return nil, repositories.ErrBonusRuleNotFound
	}
	return &rule, nil
}

func (r *memBonusRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, rule *models.BonusRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.rules[rule.PlayerID]; ok {
		rule.ID = existing.ID
	} else {
		rule.ID = r.nextID
		r.nextID++
	}
	r.rules[rule.PlayerID] = *rule
	return nil
}

func (r *memBonusRepo) DeleteByPlayerID(_ context.Context, _ repositories.SQLExecutor, playerID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rules, playerID)
	return nil
}

type memOngoingRepo struct {
	mu      sync.Mutex
	nextID  int
	matches map[int]models.OngoingMatch
}

func newMemOngoingRepo() *memOngoingRepo {
	return &memOngoingRepo{nextID: 1, matches: map[int]models.OngoingMatch{}}
}

func (r *memOngoingRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.OngoingMatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match.ID = r.nextID
	r.nextID++
	r.matches[match.ID] = *match
	return nil
}

func (r *memOngoingRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.OngoingMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrOngoingMatchNotFound
	}
	return &m, nil
}

func (r *memOngoingRepo) ListByRanking(_ context.Context, _ repositories.SQLExecutor, rankingID int) ([]*models.OngoingMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.OngoingMatch
	for _, m := range r.matches {
		if m.RankingID == rankingID {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memOngoingRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[id]; !ok {
		return repositories.ErrOngoingMatchNotFound
	}
	delete(r.matches, id)
	return nil
}

func (r *memOngoingRepo) DeleteByRankingID(_ context.Context, _ repositories.SQLExecutor, rankingID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.matches {
		if m.RankingID == rankingID {
			delete(r.matches, id)
		}
	}
	return nil
}

func (r *memOngoingRepo) DeleteByPlayerID(_ context.Context, _ repositories.SQLExecutor, playerID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.matches {
		if m.ChallengerID == playerID || m.DefenderID == playerID {
			delete(r.matches, id)
		}
	}
	return nil
}

type memFinishedRepo struct {
	mu      sync.Mutex
	nextID  int
	matches map[int]models.FinishedMatch
}

func newMemFinishedRepo() *memFinishedRepo {
	return &memFinishedRepo{nextID: 1, matches: map[int]models.FinishedMatch{}}
}

func (r *memFinishedRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.FinishedMatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match.ID = r.nextID
	r.nextID++
	r.matches[match.ID] = *match
	return nil
}

func (r *memFinishedRepo) ListByRanking(_ context.Context, _ repositories.SQLExecutor, rankingID int) ([]*models.FinishedMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.FinishedMatch
	for _, m := range r.matches {
		if m.RankingID == rankingID {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FinishedAt.Equal(out[j].FinishedAt) {
			return out[i].FinishedAt.After(out[j].FinishedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *memFinishedRepo) DeleteByRankingID(_ context.Context, _ repositories.SQLExecutor, rankingID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.matches {
		if m.RankingID == rankingID {
			delete(r.matches, id)
		}
	}
	return nil
}

type memAuthRepo struct {
	mu     sync.Mutex
	nextID int
	auths  []models.Authentication
}

func newMemAuthRepo() *memAuthRepo {
	return &memAuthRepo{nextID: 1}
}

func (r *memAuthRepo) List(_ context.Context, _ repositories.SQLExecutor) ([]*models.Authentication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Authentication, len(r.auths))
	for i := range r.auths {
		a := r.auths[i]
		out[i] = &a
	}
	return out, nil
}

func (r *memAuthRepo) Create(_ context.Context, _ repositories.SQLExecutor, auth *models.Authentication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	auth.ID = r.nextID
	r.nextID++
	r.auths = append(r.auths, *auth)
	return nil
}

func (r *memAuthRepo) Count(_ context.Context, _ repositories.SQLExecutor) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.auths), nil
}

// recordingAudit captures events so tests can assert on warnings.
type recordingAudit struct {
	mu     sync.Mutex
	events []string
}

func (a *recordingAudit) Event(_ context.Context, level models.LogLevel, origin, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, string(level)+" "+origin+": "+message)
}

type nopPublisher struct{}

func (nopPublisher) PublishRankingChanged(int) {}

// recordingPublisher counts change notifications per ranking.
type recordingPublisher struct {
	mu      sync.Mutex
	changed []int
}

func (p *recordingPublisher) PublishRankingChanged(rankingID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, rankingID)
}

// testEnv wires every service against the in-memory repositories and a fake
// clock frozen at a known instant.
type testEnv struct {
	players   *memPlayerRepo
	rankings  *memRankingRepo
	standings *memStandingRepo
	bonuses   *memBonusRepo
	ongoing   *memOngoingRepo
	finished  *memFinishedRepo
	audit     *recordingAudit
	fakeClock clockwork.FakeClock
	clock     *Clock
	publisher *recordingPublisher

	repair           *RepairService
	standingsService *StandingsService
	bonusService     *BonusService
	promoter         *Promoter
	matchService     *MatchService
	rankingService   *RankingService
	playerService    *PlayerService
}

var testEpoch = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		players:   newMemPlayerRepo(),
		rankings:  newMemRankingRepo(),
		standings: newMemStandingRepo(),
		bonuses:   newMemBonusRepo(),
		ongoing:   newMemOngoingRepo(),
		finished:  newMemFinishedRepo(),
		audit:     &recordingAudit{},
		publisher: &recordingPublisher{},
	}

	env.fakeClock = clockwork.NewFakeClockAt(testEpoch)
	clock, err := NewClock(env.fakeClock, "Europe/Berlin")
	if err != nil {
		t.Fatalf("clock: %v", err)
	}
	env.clock = clock

	env.repair = NewRepairService(nil, env.players, env.standings, env.audit)
	env.standingsService = NewStandingsService(nil, env.players, env.rankings, env.standings, env.repair, env.audit)
	env.bonusService = NewBonusService(env.standings, env.bonuses, env.audit)
	env.promoter = NewPromoter(env.standings, env.audit)
	env.matchService = NewMatchService(nil, env.players, env.rankings, env.standings,
		env.ongoing, env.finished, env.bonusService, env.promoter, env.clock, env.audit, env.publisher)
	env.rankingService = NewRankingService(nil, env.rankings, env.standings,
		env.ongoing, env.finished, env.standingsService, env.clock, env.audit)
	env.playerService = NewPlayerService(nil, env.players, env.standings,
		env.ongoing, env.bonuses, env.standingsService, env.repair, env.audit)

	return env
}

func (env *testEnv) seedPlayer(t *testing.T, name string) *models.Player {
	t.Helper()
	player := &models.Player{Name: name}
	if err := env.players.Create(context.Background(), nil, player); err != nil {
		t.Fatalf("seed player %s: %v", name, err)
	}
	return player
}

func (env *testEnv) seedRanking(t *testing.T, name string, mode models.SortMode) *models.Ranking {
	t.Helper()
	ranking := &models.Ranking{Name: name, SortMode: mode, CreatedAt: testEpoch}
	if err := env.rankings.Create(context.Background(), nil, ranking); err != nil {
		t.Fatalf("seed ranking %s: %v", name, err)
	}
	return ranking
}

func (env *testEnv) seedStanding(t *testing.T, playerID, rankingID, position, points int) *models.Standing {
	t.Helper()
	standing := &models.Standing{
		PlayerID:  playerID,
		RankingID: rankingID,
		Position:  position,
		Points:    points,
	}
	if err := env.standings.Create(context.Background(), nil, standing); err != nil {
		t.Fatalf("seed standing for player %d: %v", playerID, err)
	}
	return standing
}
