package member

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"chatserver/internal/apperror"
)

// Store is what the service needs from persistence.
type Store interface {
	CreateMember(ctx context.Context, m *Member) (*Member, error)
	GetByEmail(ctx context.Context, email string) (*Member, error)
	GetByID(ctx context.Context, id int64) (*Member, error)
	ListMembers(ctx context.Context) ([]ListItem, error)
}

// TokenIssuer mints the bearer token handed out at login.
type TokenIssuer interface {
	CreateToken(email, role string) (string, error)
}

type Service struct {
	store  Store
	tokens TokenIssuer
}

func NewService(store Store, tokens TokenIssuer) *Service {
	return &Service{store: store, tokens: tokens}
}

func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Member, error) {
	if existing, _ := s.store.GetByEmail(ctx, req.Email); existing != nil {
		return nil, apperror.InvalidState("email already in use")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	m := &Member{
		Email:    req.Email,
		Name:     req.Name,
		Password: string(hashed),
		Role:     "USER",
	}
	return s.store.CreateMember(ctx, m)
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	m, err := s.store.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperror.Authentication("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(m.Password), []byte(req.Password)); err != nil {
		return nil, apperror.Authentication("invalid credentials")
	}

	token, err := s.tokens.CreateToken(m.Email, m.Role)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{ID: m.ID, Token: token}, nil
}

func (s *Service) List(ctx context.Context) ([]ListItem, error) {
	return s.store.ListMembers(ctx)
}
