package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/offer-system/internal/model"
)

type loginCode struct {
	email     string
	hash      string
	expiresAt time.Time
	failures  int
}

type memoryState struct {
	users       map[int64]*model.User
	usersByMail map[string]int64
	offers      map[uuid.UUID]*model.Offer
	codes       []loginCode
	nextUserID  int64
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		users:       make(map[int64]*model.User, len(s.users)),
		usersByMail: make(map[string]int64, len(s.usersByMail)),
		offers:      make(map[uuid.UUID]*model.Offer, len(s.offers)),
		codes:       slices.Clone(s.codes),
		nextUserID:  s.nextUserID,
	}
	for id, u := range s.users {
		c.users[id] = u.Clone()
	}
	for email, id := range s.usersByMail {
		c.usersByMail[email] = id
	}
	for id, o := range s.offers {
		c.offers[id] = o.Clone()
	}
	return c
}

// MemoryRepository хранит данные в памяти процесса. Транзакции выполняются
// последовательно над копией состояния и применяются целиком только при успехе.
type MemoryRepository struct {
	mu    sync.Mutex
	state *memoryState
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		state: &memoryState{
			users:       make(map[int64]*model.User),
			usersByMail: make(map[string]int64),
			offers:      make(map[uuid.UUID]*model.Offer),
		},
	}
}

// Close ничего не делает.
func (r *MemoryRepository) Close() error {
	return nil
}

// ExecTx выполняет fn атомарно.
func (r *MemoryRepository) ExecTx(ctx context.Context, fn func(Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	staged := r.state.clone()
	if err := fn(&memoryTx{state: staged}); err != nil {
		return err
	}
	r.state = staged
	return nil
}

// FindOrCreateUser возвращает пользователя по адресу, создавая его с указанной ролью при первом входе.
func (r *MemoryRepository) FindOrCreateUser(_ context.Context, email string, role model.Role) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.state.usersByMail[email]; ok {
		return r.state.users[id].Clone(), nil
	}

	r.state.nextUserID++
	u := &model.User{
		ID:            r.state.nextUserID,
		Email:         email,
		Role:          role,
		SavedOffers:   model.NewSet[uuid.UUID](),
		ClaimedOffers: model.NewSet[uuid.UUID](),
		CreatedAt:     time.Now().UTC(),
	}
	r.state.users[u.ID] = u
	r.state.usersByMail[email] = u.ID
	return u.Clone(), nil
}

// GetUser возвращает пользователя по идентификатору.
func (r *MemoryRepository) GetUser(_ context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.state.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return u.Clone(), nil
}

// ListOffers возвращает все предложения, новые первыми.
func (r *MemoryRepository) ListOffers(_ context.Context) ([]model.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]model.Offer, 0, len(r.state.offers))
	for _, o := range r.state.offers {
		res = append(res, *o.Clone())
	}
	sortNewestFirst(res)
	return res, nil
}

// GetOffer возвращает предложение по идентификатору.
func (r *MemoryRepository) GetOffer(_ context.Context, id uuid.UUID) (*model.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.state.offers[id]
	if !ok {
		return nil, model.ErrOfferNotFound
	}
	return o.Clone(), nil
}

// GetOffersByIDs возвращает существующие предложения из списка, новые первыми.
func (r *MemoryRepository) GetOffersByIDs(_ context.Context, ids []uuid.UUID) ([]model.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]model.Offer, 0, len(ids))
	for _, id := range ids {
		if o, ok := r.state.offers[id]; ok {
			res = append(res, *o.Clone())
		}
	}
	sortNewestFirst(res)
	return res, nil
}

// CreateOffer сохраняет новое предложение.
func (r *MemoryRepository) CreateOffer(_ context.Context, o *model.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.offers[o.ID] = o.Clone()
	return nil
}

// DeleteOffer удаляет предложение и возвращает его последнее состояние.
// Сохранённые и использованные идентификаторы у пользователей остаются.
func (r *MemoryRepository) DeleteOffer(_ context.Context, id uuid.UUID) (*model.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.state.offers[id]
	if !ok {
		return nil, model.ErrOfferNotFound
	}
	delete(r.state.offers, id)
	return o, nil
}

// SaveLoginCode сохраняет хеш одноразового кода.
func (r *MemoryRepository) SaveLoginCode(_ context.Context, email string, codeHash []byte, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.codes = append(r.state.codes, loginCode{email: email, hash: string(codeHash), expiresAt: expiresAt})
	return nil
}

// ConsumeLoginCode проверяет код и при успехе удаляет все коды адреса.
func (r *MemoryRepository) ConsumeLoginCode(_ context.Context, email string, codeHash []byte, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := slices.ContainsFunc(r.state.codes, func(c loginCode) bool {
		return c.email == email && c.hash == string(codeHash) && c.expiresAt.After(now)
	})
	if !found {
		return false, nil
	}

	r.state.codes = slices.DeleteFunc(r.state.codes, func(c loginCode) bool {
		return c.email == email
	})
	return true, nil
}

// RecordFailedLogin учитывает неудачную попытку входа по всем кодам адреса
// и удаляет коды, исчерпавшие limit попыток.
func (r *MemoryRepository) RecordFailedLogin(_ context.Context, email string, limit int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.state.codes)
	r.state.codes = slices.DeleteFunc(r.state.codes, func(c loginCode) bool {
		return c.email == email && c.failures+1 >= limit
	})
	for i := range r.state.codes {
		if r.state.codes[i].email == email {
			r.state.codes[i].failures++
		}
	}
	return int64(before - len(r.state.codes)), nil
}

// DeleteExpiredLoginCodes удаляет просроченные коды и возвращает их количество.
func (r *MemoryRepository) DeleteExpiredLoginCodes(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.state.codes)
	r.state.codes = slices.DeleteFunc(r.state.codes, func(c loginCode) bool {
		return !c.expiresAt.After(now)
	})
	return int64(before - len(r.state.codes)), nil
}

func sortNewestFirst(offers []model.Offer) {
	slices.SortFunc(offers, func(a, b model.Offer) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}

type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) LockOffer(_ context.Context, id uuid.UUID) (*model.Offer, error) {
	o, ok := t.state.offers[id]
	if !ok {
		return nil, model.ErrOfferNotFound
	}
	return o.Clone(), nil
}

func (t *memoryTx) LockUser(_ context.Context, id int64) (*model.User, error) {
	u, ok := t.state.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (t *memoryTx) OfferExists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := t.state.offers[id]
	return ok, nil
}

func (t *memoryTx) SetLike(_ context.Context, offerID uuid.UUID, userID int64, liked bool) error {
	o, ok := t.state.offers[offerID]
	if !ok {
		return model.ErrOfferNotFound
	}
	if liked {
		o.LikedBy.Add(userID)
	} else {
		o.LikedBy.Remove(userID)
	}
	return nil
}

func (t *memoryTx) SetSaved(_ context.Context, userID int64, offerID uuid.UUID, saved bool) error {
	u, ok := t.state.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	if saved {
		u.SavedOffers.Add(offerID)
	} else {
		u.SavedOffers.Remove(offerID)
	}
	return nil
}

func (t *memoryTx) InsertClaim(_ context.Context, userID int64, offerID uuid.UUID) (bool, error) {
	u, ok := t.state.users[userID]
	if !ok {
		return false, model.ErrUserNotFound
	}
	if u.ClaimedOffers.Has(offerID) {
		return false, nil
	}
	u.ClaimedOffers.Add(offerID)
	return true, nil
}

func (t *memoryTx) IncrementClaims(_ context.Context, offerID uuid.UUID) error {
	o, ok := t.state.offers[offerID]
	if !ok {
		return model.ErrOfferNotFound
	}
	o.ClaimsCount++
	return nil
}

func (t *memoryTx) UpdateOffer(_ context.Context, o *model.Offer) error {
	if _, ok := t.state.offers[o.ID]; !ok {
		return model.ErrOfferNotFound
	}
	t.state.offers[o.ID] = o.Clone()
	return nil
}

var _ Tx = (*memoryTx)(nil)
