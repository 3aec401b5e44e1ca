package service

import (
	"context"
	"strings"

	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/pkg/database"
	"github.com/suteetoe/society-service/pkg/jwtutil"
	"github.com/suteetoe/society-service/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Principal is the authenticated user, admin or owner.
type Principal struct {
	ID     string `json:"id"`
	Role   string `json:"role"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	FlatNo string `json:"flat_no,omitempty"`
}

// Session is a signed token and the principal it was issued for.
type Session struct {
	Token string    `json:"token"`
	User  Principal `json:"user"`
}

// RegisterInput is an owner's self-registration.
type RegisterInput struct {
	Name        string
	Email       string
	Phone       string
	FlatNo      string
	Password    string
	ApartmentID string
}

type AuthService struct {
	base
	jwt *jwtutil.JWTUtil
}

func NewAuthService(db *gorm.DB, log *zap.Logger, jwt *jwtutil.JWTUtil, opts ...Option) *AuthService {
	return &AuthService{base: newBase(db, log, opts), jwt: jwt}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// AdminLogin checks an admin's credentials and issues a token.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*Session, error) {
	log := s.logger(ctx)
	prometheus.RecordLogin(jwtutil.RoleAdmin)
	defer prometheus.TrackDBOperation("query")()

	var admin model.Admin
	if err := s.conn(ctx).Where("email = ?", normalizeEmail(email)).First(&admin).Error; err != nil {
		if database.IsNotFound(err) {
			log.Warn("Admin not found", zap.String("email", email))
			prometheus.RecordAuthError("user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)) != nil {
		log.Warn("Invalid admin password", zap.String("email", email))
		prometheus.RecordAuthError("invalid_password")
		return nil, ErrInvalidCredentials
	}

	p := Principal{ID: admin.ID, Role: jwtutil.RoleAdmin, Name: admin.Name, Email: admin.Email}
	return s.issue(ctx, p)
}

// OwnerLogin checks an owner's credentials and issues a token carrying the
// owner's flat number.
func (s *AuthService) OwnerLogin(ctx context.Context, email, password string) (*Session, error) {
	log := s.logger(ctx)
	prometheus.RecordLogin(jwtutil.RoleOwner)
	defer prometheus.TrackDBOperation("query")()

	var owner model.Owner
	err := s.conn(ctx).Preload("Flat").Where("email = ?", normalizeEmail(email)).First(&owner).Error
	if err != nil {
		if database.IsNotFound(err) {
			log.Warn("Owner not found", zap.String("email", email))
			prometheus.RecordAuthError("user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if owner.Password == "" || bcrypt.CompareHashAndPassword([]byte(owner.Password), []byte(password)) != nil {
		log.Warn("Invalid owner password", zap.String("email", email))
		prometheus.RecordAuthError("invalid_password")
		return nil, ErrInvalidCredentials
	}
	if owner.Status == model.OwnerInactive {
		prometheus.RecordAuthError("inactive")
		return nil, ErrInactive
	}

	return s.issue(ctx, ownerPrincipal(&owner))
}

// Register creates an owner account and pairs it with the flat named by
// FlatNo in one transaction.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	log := s.logger(ctx)
	prometheus.RegisterCounter.Inc()

	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" || in.Name == "" || in.FlatNo == "" {
		prometheus.RecordAuthError("incomplete_registration")
		return nil, invalid("name, email, flat_no and password are required")
	}

	var existing int64
	if err := s.conn(ctx).Model(&model.Owner{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		prometheus.RecordAuthError("email_already_exists")
		return nil, conflict("email already registered")
	}

	q := s.conn(ctx).Where("flat_number = ?", strings.TrimSpace(in.FlatNo))
	if in.ApartmentID != "" {
		q = q.Where("apartment_id = ?", in.ApartmentID)
	}
	var flats []model.Flat
	if err := q.Limit(2).Find(&flats).Error; err != nil {
		return nil, err
	}
	switch {
	case len(flats) == 0:
		return nil, notFound("flat")
	case len(flats) > 1:
		return nil, invalid("flat number %s exists in several apartments; apartmentId is required", in.FlatNo)
	case flats[0].OwnerID != nil:
		prometheus.RecordAuthError("flat_taken")
		return nil, conflict("flat %s already has an owner", in.FlatNo)
	}
	flat := flats[0]

	hash, err := hashPassword(in.Password)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return nil, err
	}

	now := s.clock()
	owner := model.Owner{
		Name:          in.Name,
		Email:         &email,
		Phone:         in.Phone,
		FlatID:        &flat.ID,
		Password:      hash,
		Status:        model.OwnerActive,
		OwnershipDate: &now,
	}

	err = s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		defer prometheus.TrackDBOperation("insert")()
		if err := tx.Create(&owner).Error; err != nil {
			return writeErr(err, "email already registered")
		}
		res := tx.Model(&model.Flat{}).
			Where("id = ? AND owner_id IS NULL", flat.ID).
			Updates(map[string]interface{}{"owner_id": owner.ID, "is_occupied": true})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflict("flat %s already has an owner", in.FlatNo)
		}
		return tx.Create(&model.OwnershipHistory{
			FlatID:        flat.ID,
			NewOwnerID:    owner.ID,
			TransferDate:  now,
			TransferredBy: owner.ID,
			TransferType:  model.TransferAssignment,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	log.Info("Owner registered", zap.String("owner_id", owner.ID), zap.String("flat_id", flat.ID))
	owner.Flat = &flat
	return s.issue(ctx, ownerPrincipal(&owner))
}

// Me reloads the principal behind a token.
func (s *AuthService) Me(ctx context.Context, id, role string) (*Principal, error) {
	switch role {
	case jwtutil.RoleAdmin:
		var admin model.Admin
		if err := s.conn(ctx).First(&admin, "id = ?", id).Error; err != nil {
			return nil, lookupErr(err, "admin")
		}
		return &Principal{ID: admin.ID, Role: role, Name: admin.Name, Email: admin.Email}, nil
	case jwtutil.RoleOwner:
		var owner model.Owner
		if err := s.conn(ctx).Preload("Flat").First(&owner, "id = ?", id).Error; err != nil {
			return nil, lookupErr(err, "owner")
		}
		p := ownerPrincipal(&owner)
		return &p, nil
	}
	return nil, invalid("unknown role %q", role)
}

// CreateAdmin provisions an admin account.
func (s *AuthService) CreateAdmin(ctx context.Context, name, email, password string) (*model.Admin, error) {
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, invalid("name, email and password are required")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	admin := model.Admin{Name: name, Email: email, Password: hash}
	if err := s.conn(ctx).Create(&admin).Error; err != nil {
		return nil, writeErr(err, "admin %s already exists", email)
	}
	s.logger(ctx).Info("Admin created", zap.String("admin_id", admin.ID))
	return &admin, nil
}

func (s *AuthService) issue(ctx context.Context, p Principal) (*Session, error) {
	token, err := s.jwt.GenerateToken(p.ID, p.Role, p.Name, p.FlatNo)
	if err != nil {
		s.logger(ctx).Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return nil, err
	}
	s.logger(ctx).Info("User logged in", zap.String("user_id", p.ID), zap.String("role", p.Role))
	return &Session{Token: token, User: p}, nil
}

func ownerPrincipal(o *model.Owner) Principal {
	p := Principal{ID: o.ID, Role: jwtutil.RoleOwner, Name: o.Name}
	if o.Email != nil {
		p.Email = *o.Email
	}
	if o.Flat != nil {
		p.FlatNo = o.Flat.FlatNumber
	}
	return p
}
