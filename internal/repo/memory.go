package repo

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"siteforge/internal/domain"
	"siteforge/pkg/utils"
)

// 内存实现：测试与单机开发用。ApplyPatch 在锁内完成合并 + version 自增，
// 语义上等价于 gorm 实现的单条 UPDATE。

type MemUserRepo struct {
	mu    sync.RWMutex
	byID  map[string]domain.User
	email map[string]string // email -> id
	uname map[string]string // username -> id
}

func NewMemUserRepo() *MemUserRepo {
	return &MemUserRepo{
		byID:  map[string]domain.User{},
		email: map[string]string{},
		uname: map[string]string{},
	}
}

func (m *MemUserRepo) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.email[u.Email]; ok {
		return errors.New("duplicate key: users.email")
	}
	if _, ok := m.uname[u.Username]; ok {
		return errors.New("duplicate key: users.username")
	}
	if u.ID == "" {
		u.ID = utils.NewID()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = *u
	m.email[u.Email] = u.ID
	m.uname[u.Username] = u.ID
	return nil
}

func (m *MemUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.byID[id]; ok {
		cp := u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MemUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		cp := m.byID[id]
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MemUserRepo) FindByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.User
	for _, id := range ids {
		if u, ok := m.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MemUserRepo) Update(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return domain.ErrNotFound
	}
	u.UpdatedAt = time.Now()
	m.byID[u.ID] = *u
	return nil
}

type MemWebsiteRepo struct {
	mu    sync.RWMutex
	byID  map[string]domain.Website
	collw *MemCollaborationRepo
	seow  *MemSEORepo
	prodw *MemProductRepo
}

// NewMemWebsiteRepo 连带子仓库，DeleteCascade 需要它们
func NewMemWebsiteRepo(coll *MemCollaborationRepo, seo *MemSEORepo, prod *MemProductRepo) *MemWebsiteRepo {
	return &MemWebsiteRepo{
		byID:  map[string]domain.Website{},
		collw: coll,
		seow:  seo,
		prodw: prod,
	}
}

func (m *MemWebsiteRepo) Create(_ context.Context, w *domain.Website) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == "" {
		w.ID = utils.NewID()
	}
	if w.Version == 0 {
		w.Version = 1
	}
	w.CreatedAt = time.Now()
	w.UpdatedAt = w.CreatedAt
	m.byID[w.ID] = *w
	return nil
}

func (m *MemWebsiteRepo) FindByID(_ context.Context, id string) (*domain.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w, ok := m.byID[id]; ok {
		cp := w
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MemWebsiteRepo) FindByDomain(_ context.Context, dom string) (*domain.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.byID {
		if w.Domain == dom {
			cp := w
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MemWebsiteRepo) ListByOwner(_ context.Context, ownerID string) ([]domain.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Website
	for _, w := range m.byID {
		if w.OwnerID == ownerID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemWebsiteRepo) ListByIDs(_ context.Context, ids []string) ([]domain.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Website
	for _, id := range ids {
		if w, ok := m.byID[id]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *MemWebsiteRepo) ApplyPatch(_ context.Context, id string, p domain.WebsitePatch) (*domain.Website, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Name != nil {
		w.Name = *p.Name
	}
	if p.Content != nil {
		w.Content = *p.Content
	}
	if p.Domain != nil {
		w.Domain = *p.Domain
	}
	if p.Published != nil {
		w.Published = *p.Published
	}
	w.Version++
	w.UpdatedAt = time.Now()
	m.byID[id] = w
	cp := w
	return &cp, nil
}

func (m *MemWebsiteRepo) DeleteCascade(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.byID[id]; !ok {
		m.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	m.mu.Unlock()

	if m.collw != nil {
		m.collw.removeByWebsite(id)
	}
	if m.seow != nil {
		m.seow.removeByWebsite(id)
	}
	if m.prodw != nil {
		m.prodw.removeByWebsite(id)
	}
	return nil
}

type MemCollaborationRepo struct {
	mu   sync.RWMutex
	rows map[string]domain.Collaboration // key websiteID+"/"+userID
}

func NewMemCollaborationRepo() *MemCollaborationRepo {
	return &MemCollaborationRepo{rows: map[string]domain.Collaboration{}}
}

func collKey(websiteID, userID string) string { return websiteID + "/" + userID }

func (m *MemCollaborationRepo) Grant(_ context.Context, c *domain.Collaboration) (*domain.Collaboration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := collKey(c.WebsiteID, c.UserID)
	if existing, ok := m.rows[k]; ok {
		cp := existing
		return &cp, nil
	}
	if c.ID == "" {
		c.ID = utils.NewID()
	}
	c.CreatedAt = time.Now()
	m.rows[k] = *c
	cp := *c
	return &cp, nil
}

func (m *MemCollaborationRepo) Revoke(_ context.Context, websiteID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := collKey(websiteID, userID)
	if _, ok := m.rows[k]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rows, k)
	return nil
}

func (m *MemCollaborationRepo) Find(_ context.Context, websiteID, userID string) (*domain.Collaboration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.rows[collKey(websiteID, userID)]; ok {
		cp := c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MemCollaborationRepo) ListByWebsite(_ context.Context, websiteID string) ([]domain.Collaboration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Collaboration
	for _, c := range m.rows {
		if c.WebsiteID == websiteID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemCollaborationRepo) ListByUser(_ context.Context, userID string) ([]domain.Collaboration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Collaboration
	for _, c := range m.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemCollaborationRepo) removeByWebsite(websiteID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, c := range m.rows {
		if c.WebsiteID == websiteID {
			delete(m.rows, k)
		}
	}
}

type MemSEORepo struct {
	mu   sync.RWMutex
	rows map[string]domain.SEOData // key websiteID
}

func NewMemSEORepo() *MemSEORepo { return &MemSEORepo{rows: map[string]domain.SEOData{}} }

func (m *MemSEORepo) Upsert(_ context.Context, s *domain.SEOData) (*domain.SEOData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.rows[s.WebsiteID]; ok {
		s.ID = existing.ID
	} else if s.ID == "" {
		s.ID = utils.NewID()
	}
	s.UpdatedAt = time.Now()
	m.rows[s.WebsiteID] = *s
	cp := *s
	return &cp, nil
}

func (m *MemSEORepo) FindByWebsite(_ context.Context, websiteID string) (*domain.SEOData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.rows[websiteID]; ok {
		cp := s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MemSEORepo) removeByWebsite(websiteID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, websiteID)
}

type MemTemplateRepo struct {
	mu   sync.RWMutex
	rows map[string]domain.Template
}

func NewMemTemplateRepo() *MemTemplateRepo {
	return &MemTemplateRepo{rows: map[string]domain.Template{}}
}

// Seed 测试/本地起步数据
func (m *MemTemplateRepo) Seed(ts ...domain.Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range ts {
		if t.ID == "" {
			t.ID = utils.NewID()
		}
		m.rows[t.ID] = t
	}
}

func (m *MemTemplateRepo) List(_ context.Context) ([]domain.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Template, 0, len(m.rows))
	for _, t := range m.rows {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *MemTemplateRepo) FindByID(_ context.Context, id string) (*domain.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.rows[id]; ok {
		cp := t
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

type MemProductRepo struct {
	mu   sync.RWMutex
	rows map[string]domain.EcommerceProduct
}

func NewMemProductRepo() *MemProductRepo {
	return &MemProductRepo{rows: map[string]domain.EcommerceProduct{}}
}

func (m *MemProductRepo) Create(_ context.Context, p *domain.EcommerceProduct) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = utils.NewID()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.rows[p.ID] = *p
	return nil
}

func (m *MemProductRepo) FindByID(_ context.Context, id string) (*domain.EcommerceProduct, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.rows[id]; ok {
		cp := p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MemProductRepo) Update(_ context.Context, p *domain.EcommerceProduct) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.ID]; !ok {
		return domain.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	m.rows[p.ID] = *p
	return nil
}

func (m *MemProductRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *MemProductRepo) ListByWebsite(_ context.Context, websiteID string) ([]domain.EcommerceProduct, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.EcommerceProduct
	for _, p := range m.rows {
		if p.WebsiteID == websiteID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemProductRepo) removeByWebsite(websiteID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.rows {
		if p.WebsiteID == websiteID {
			delete(m.rows, id)
		}
	}
}
