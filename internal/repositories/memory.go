package repositories

import (
	"cmp"
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slices"

	"journeyrewards/internal/models"
)

// ===============================
// IN-MEMORY STORE
// ===============================

type badgeKey struct {
	userID    int64
	badgeName string
}

// memoryStore backs the in-memory repositories. One mutex guards all
// tables so each repository call is atomic, like a single SQL statement.
type memoryStore struct {
	mu  sync.Mutex
	now func() time.Time

	nextID int64

	users        map[int64]*models.User
	posts        map[int64]*models.Post
	transactions []*models.PointTransaction
	awards       map[badgeKey]*models.BadgeAward
}

func newMemoryStore(now func() time.Time) *memoryStore {
	if now == nil {
		now = time.Now
	}
	return &memoryStore{
		now:    now,
		users:  make(map[int64]*models.User),
		posts:  make(map[int64]*models.Post),
		awards: make(map[badgeKey]*models.BadgeAward),
	}
}

func (s *memoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memoryStore) checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func copyUser(u *models.User) *models.User {
	out := *u
	out.Badges = append([]string{}, u.Badges...)
	if u.LastVisitDate != nil {
		t := *u.LastVisitDate
		out.LastVisitDate = &t
	}
	return &out
}

func copyTransaction(tx *models.PointTransaction) *models.PointTransaction {
	out := *tx
	out.Metadata = tx.Metadata.Clone()
	if tx.RelatedPostID != nil {
		id := *tx.RelatedPostID
		out.RelatedPostID = &id
	}
	return &out
}

// ===============================
// USERS
// ===============================

type memoryUserRepository struct{ s *memoryStore }

func (r *memoryUserRepository) Create(ctx context.Context, user *models.User) error {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return fmt.Errorf("username %q: %w", user.Username, ErrDuplicate)
		}
	}
	now := s.now()
	user.ID = s.id()
	user.Points = 0
	user.Level = 1
	user.Badges = []string{}
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = copyUser(user)
	return nil
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (r *memoryUserRepository) IncrementBalance(ctx context.Context, userID, amount int64) (int64, int, error) {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return 0, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return 0, 0, fmt.Errorf("increment balance: %w", ErrNotFound)
	}
	u.Points += amount
	u.Level = models.LevelForPoints(u.Points)
	u.UpdatedAt = s.now()
	return u.Points, u.Level, nil
}

func (r *memoryUserRepository) AppendBadgeName(ctx context.Context, userID int64, badgeName string) error {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || u.HasBadge(badgeName) {
		return nil
	}
	u.Badges = append(u.Badges, badgeName)
	u.UpdatedAt = s.now()
	return nil
}

func (r *memoryUserRepository) UpdateStreak(ctx context.Context, userID int64, consecutiveDays int, visitDate time.Time) (bool, error) {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return false, nil
	}
	day := truncateDay(visitDate)
	if u.LastVisitDate != nil && u.LastVisitDate.Equal(day) {
		return false, nil
	}
	u.ConsecutiveDays = consecutiveDays
	u.LastVisitDate = &day
	u.UpdatedAt = s.now()
	return true, nil
}

func (r *memoryUserRepository) GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	users := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, copyUser(u))
	}
	s.mu.Unlock()

	slices.SortFunc(users, func(a, b *models.User) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit < len(users) {
		users = users[:limit]
	}

	entries := make([]*models.LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = &models.LeaderboardEntry{
			Rank:       i + 1,
			UserID:     u.ID,
			Username:   u.Username,
			Points:     u.Points,
			Level:      u.Level,
			BadgeCount: len(u.Badges),
		}
	}
	return entries, nil
}

// truncateDay drops the clock part, keeping the date in t's location
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ===============================
// POINT LEDGER
// ===============================

type memoryPointRepository struct{ s *memoryStore }

func (r *memoryPointRepository) Append(ctx context.Context, tx *models.PointTransaction) error {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.Metadata == nil {
		tx.Metadata = models.Metadata{}
	}
	tx.ID = s.id()
	tx.CreatedAt = s.now()
	s.transactions = append(s.transactions, copyTransaction(tx))
	return nil
}

// userTransactions returns the user's rows newest first. Caller holds mu.
func (s *memoryStore) userTransactions(userID int64) []*models.PointTransaction {
	out := make([]*models.PointTransaction, 0)
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].UserID == userID {
			out = append(out, s.transactions[i])
		}
	}
	slices.SortStableFunc(out, func(a, b *models.PointTransaction) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

func (r *memoryPointRepository) ListByUser(ctx context.Context, userID int64, params models.PaginationParams) ([]*models.PointTransaction, error) {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.userTransactions(userID)
	history := make([]*models.PointTransaction, 0, params.Limit)
	for i := params.Offset; i < len(all) && len(history) < params.Limit; i++ {
		tx := copyTransaction(all[i])
		if tx.RelatedPostID != nil {
			if p, ok := s.posts[*tx.RelatedPostID]; ok {
				tx.RelatedPost = &models.RelatedPost{ID: p.ID, Location: p.Location, ImageURL: p.ImageURL}
			}
		}
		history = append(history, tx)
	}
	return history, nil
}

func (r *memoryPointRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *memoryPointRepository) StatsByUser(ctx context.Context, userID int64) ([]*models.ReasonBreakdown, error) {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	byReason := make(map[models.PointReason]*models.ReasonBreakdown)
	for _, tx := range s.transactions {
		if tx.UserID != userID {
			continue
		}
		b, ok := byReason[tx.Reason]
		if !ok {
			b = &models.ReasonBreakdown{Reason: tx.Reason, Label: tx.Reason.Label()}
			byReason[tx.Reason] = b
		}
		b.Count++
		b.TotalPoints += tx.Amount
	}
	s.mu.Unlock()

	breakdown := make([]*models.ReasonBreakdown, 0, len(byReason))
	for _, b := range byReason {
		breakdown = append(breakdown, b)
	}
	slices.SortFunc(breakdown, func(a, b *models.ReasonBreakdown) int {
		if c := cmp.Compare(b.TotalPoints, a.TotalPoints); c != 0 {
			return c
		}
		return cmp.Compare(a.Reason, b.Reason)
	})
	return breakdown, nil
}

func (r *memoryPointRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			total += tx.Amount
		}
	}
	return total, nil
}

func (r *memoryPointRepository) BadgeRewardTotals(ctx context.Context, userID int64) (map[string]int64, error) {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := make(map[string]int64)
	for _, tx := range s.transactions {
		if tx.UserID != userID || tx.Reason != models.ReasonBadgeEarned {
			continue
		}
		if name, ok := tx.Metadata["badgeName"].(string); ok {
			totals[name] += tx.Amount
		}
	}
	return totals, nil
}

// ===============================
// BADGE AWARDS
// ===============================

type memoryBadgeRepository struct{ s *memoryStore }

func (r *memoryBadgeRepository) Exists(ctx context.Context, userID int64, badgeName string) (bool, error) {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.awards[badgeKey{userID, badgeName}]
	return ok, nil
}

func (r *memoryBadgeRepository) Create(ctx context.Context, award *models.BadgeAward) error {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := badgeKey{award.UserID, award.BadgeName}
	if _, ok := s.awards[key]; ok {
		return fmt.Errorf("badge %q for user %d: %w", award.BadgeName, award.UserID, ErrDuplicate)
	}
	award.ID = s.id()
	award.CreatedAt = s.now()
	award.Notified = false
	stored := *award
	s.awards[key] = &stored
	return nil
}

// sortedAwards filters the user's awards. Caller holds mu.
func (s *memoryStore) sortedAwards(userID int64, pendingOnly, newestFirst bool) []*models.BadgeAward {
	out := make([]*models.BadgeAward, 0)
	for _, a := range s.awards {
		if a.UserID != userID || (pendingOnly && a.Notified) {
			continue
		}
		c := *a
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *models.BadgeAward) int {
		c := a.CreatedAt.Compare(b.CreatedAt)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if newestFirst {
			return -c
		}
		return c
	})
	return out
}

func (r *memoryBadgeRepository) ListByUser(ctx context.Context, userID int64) ([]*models.BadgeAward, error) {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedAwards(userID, false, true), nil
}

func (r *memoryBadgeRepository) ListPending(ctx context.Context, userID int64) ([]*models.BadgeAward, error) {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedAwards(userID, true, false), nil
}

func (r *memoryBadgeRepository) MarkNotified(ctx context.Context, userID int64, badgeName string) (bool, error) {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.awards[badgeKey{userID, badgeName}]
	if !ok || a.Notified {
		return false, nil
	}
	a.Notified = true
	return true, nil
}

// ===============================
// POSTS
// ===============================

type memoryPostRepository struct{ s *memoryStore }

func (r *memoryPostRepository) Create(ctx context.Context, post *models.Post) error {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[post.UserID]; !ok {
		return fmt.Errorf("create post for user %d: %w", post.UserID, ErrNotFound)
	}
	if post.Category == "" {
		post.Category = models.CategoryGeneral
	}
	post.ID = s.id()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = s.now()
	}
	stored := *post
	s.posts[post.ID] = &stored
	return nil
}

func (r *memoryPostRepository) ListVisibleByUser(ctx context.Context, userID int64) ([]*models.PostSummary, error) {
	s := r.s
	if err := s.checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := make([]*models.PostSummary, 0)
	for _, p := range s.posts {
		if p.UserID == userID && p.IsPublic {
			posts = append(posts, p.Summary())
		}
	}
	slices.SortFunc(posts, func(a, b *models.PostSummary) int { return cmp.Compare(a.ID, b.ID) })
	return posts, nil
}
