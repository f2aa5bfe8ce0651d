package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"siteforge/internal/core/auth"
	"siteforge/internal/domain"
	"siteforge/pkg/utils"
)

// Service 是身份存储：注册、凭证校验、凭证轮换。
// 口令只存 bcrypt 散列，凭证是 1 小时有效的无状态 JWT。
type Service struct {
	users domain.UserRepository
	jwter *auth.JWTer
	log   *zap.Logger
}

func New(users domain.UserRepository, jwter *auth.JWTer, log *zap.Logger) *Service {
	return &Service{users: users, jwter: jwter, log: log}
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (s *Service) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", domain.ErrValidation)
	}
	if len(username) > 64 || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: malformed username or email", domain.ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	u := &domain.User{
		ID:           utils.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: utils.HashPassword(password),
	}
	if err := s.users.Create(ctx, u); err != nil {
		// 唯一索引撞车（username 没有预检查；email 预检查过但可能并发撞上），
		// 按违反的索引区分口径
		if isDupKey(err) {
			if strings.Contains(strings.ToLower(err.Error()), "username") {
				return nil, domain.ErrDuplicateUsername
			}
			return nil, domain.ErrDuplicateEmail
		}
		return nil, err
	}

	tok, err := s.jwter.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", u.ID))
	return &AuthResult{Token: tok, User: u}, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// 不区分"邮箱不存在"与"密码错误"
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	tok, err := s.jwter.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: tok, User: u}, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

// ChangePassword 凭证轮换，唯一允许的用户记录变更
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(oldPassword, u.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	u.PasswordHash = utils.HashPassword(newPassword)
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}
	s.log.Info("password rotated", zap.String("user_id", userID))
	return nil
}

func isDupKey(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "duplicate key")
}
