package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/oversight/internal/apperrors"
	"github.com/SscSPs/oversight/internal/core/domain"
	portsrepo "github.com/SscSPs/oversight/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/oversight/internal/core/ports/services"
	"github.com/SscSPs/oversight/internal/core/services"
	"github.com/SscSPs/oversight/internal/dto"
	"github.com/SscSPs/oversight/internal/platform/config"
	"github.com/SscSPs/oversight/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock UserRepository ---
type MockUserRepository struct {
	mock.Mock
}

var _ portsrepo.UserRepositoryFacade = (*MockUserRepository)(nil)

func (m *MockUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) FindUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateRefreshToken(ctx context.Context, userID string, refreshTokenHash string, refreshTokenExpiryTime time.Time) error {
	args := m.Called(ctx, userID, refreshTokenHash, refreshTokenExpiryTime)
	return args.Error(0)
}

func (m *MockUserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepository) MarkUserDeleted(ctx context.Context, userID string, deletedAt time.Time, deletedBy string) error {
	args := m.Called(ctx, userID, deletedAt, deletedBy)
	return args.Error(0)
}

// --- Test Suite ---
type UserServiceTestSuite struct {
	suite.Suite
	mockRepo *MockUserRepository
	service  portssvc.UserSvcFacade
	ctx      context.Context
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}

func (suite *UserServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockUserRepository)
	suite.service = services.NewUserService(suite.mockRepo)
	suite.ctx = context.Background()
}

func (suite *UserServiceTestSuite) TestCreateUser_Success() {
	creator := uuid.NewString()
	req := dto.CreateUserRequest{
		Name:       " Alice ",
		Email:      "Alice@Example.com",
		Password:   "correct horse",
		Role:       domain.RoleHOD,
		Department: "IT",
	}

	suite.mockRepo.On("SaveUser", suite.ctx, mock.MatchedBy(func(u domain.User) bool {
		return u.Name == "Alice" && u.Email == "alice@example.com" && u.Role == domain.RoleHOD &&
			u.IsActive && u.CreatedBy == creator && utils.CheckPasswordHash("correct horse", u.PasswordHash)
	})).Return(nil).Once()

	user, err := suite.service.CreateUser(suite.ctx, req, creator)

	suite.Require().NoError(err)
	suite.NotEmpty(user.UserID)
	suite.Equal("IT", user.Department)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestCreateUser_HODNeedsDepartment() {
	_, err := suite.service.CreateUser(suite.ctx, dto.CreateUserRequest{
		Name: "Hank", Email: "hank@example.com", Password: "password1", Role: domain.RoleHOD,
	}, "admin")

	var ve *apperrors.ValidationError
	suite.Require().True(errors.As(err, &ve))
	suite.Equal("department", ve.Field)
}

func (suite *UserServiceTestSuite) TestCreateUser_Duplicate() {
	suite.mockRepo.On("SaveUser", suite.ctx, mock.AnythingOfType("domain.User")).Return(apperrors.ErrDuplicate).Once()

	user, err := suite.service.CreateUser(suite.ctx, dto.CreateUserRequest{
		Name: "Erin", Email: "erin@example.com", Password: "password1", Role: domain.RoleEmployee,
	}, "admin")

	suite.Nil(user)
	suite.ErrorIs(err, apperrors.ErrDuplicate)
}

func (suite *UserServiceTestSuite) TestUpdateUser() {
	existing := &domain.User{UserID: "u-1", Name: "Erin", Role: domain.RoleEmployee, IsActive: true}
	role := domain.RoleHOD
	dept := "Finance Ops"

	suite.mockRepo.On("FindUserByID", suite.ctx, "u-1").Return(existing, nil).Once()
	suite.mockRepo.On("UpdateUser", suite.ctx, mock.MatchedBy(func(u domain.User) bool {
		return u.Role == domain.RoleHOD && u.Department == "Finance Ops" && u.LastUpdatedBy == "admin"
	})).Return(nil).Once()

	user, err := suite.service.UpdateUser(suite.ctx, "u-1", dto.UpdateUserRequest{Role: &role, Department: &dept}, "admin")

	suite.Require().NoError(err)
	suite.Equal(domain.RoleHOD, user.Role)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestUpdateUser_CannotDeactivateSelf() {
	inactive := false
	suite.mockRepo.On("FindUserByID", suite.ctx, "u-1").Return(&domain.User{UserID: "u-1", IsActive: true}, nil).Once()

	_, err := suite.service.UpdateUser(suite.ctx, "u-1", dto.UpdateUserRequest{IsActive: &inactive}, "u-1")

	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateUser", mock.Anything, mock.Anything)
}

func (suite *UserServiceTestSuite) TestDeleteUser() {
	suite.mockRepo.On("MarkUserDeleted", suite.ctx, "u-2", mock.AnythingOfType("time.Time"), "admin").Return(nil).Once()
	suite.NoError(suite.service.DeleteUser(suite.ctx, "u-2", "admin"))

	suite.ErrorIs(suite.service.DeleteUser(suite.ctx, "admin", "admin"), apperrors.ErrValidation)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestListUsers_DefaultsLimit() {
	suite.mockRepo.On("FindUsers", suite.ctx, 20, 0).Return([]domain.User{{UserID: "u-1"}}, nil).Once()

	users, err := suite.service.ListUsers(suite.ctx, 0, -5)

	suite.Require().NoError(err)
	suite.Len(users, 1)
}

func (suite *UserServiceTestSuite) TestAuthenticateUser() {
	hash, err := utils.HashPassword("s3cret-pass")
	suite.Require().NoError(err)
	active := &domain.User{UserID: "u-1", Email: "erin@example.com", PasswordHash: hash, IsActive: true}
	inactive := &domain.User{UserID: "u-2", Email: "gone@example.com", PasswordHash: hash, IsActive: false}

	suite.mockRepo.On("FindUserByEmail", suite.ctx, "erin@example.com").Return(active, nil)
	suite.mockRepo.On("FindUserByEmail", suite.ctx, "gone@example.com").Return(inactive, nil)
	suite.mockRepo.On("FindUserByEmail", suite.ctx, "nobody@example.com").Return(nil, apperrors.ErrNotFound)
	suite.mockRepo.On("FindUserByEmail", suite.ctx, "broken@example.com").Return(nil, assert.AnError)

	user, err := suite.service.AuthenticateUser(suite.ctx, " Erin@Example.com ", "s3cret-pass")
	suite.Require().NoError(err)
	suite.Equal("u-1", user.UserID)

	_, err = suite.service.AuthenticateUser(suite.ctx, "erin@example.com", "wrong")
	suite.ErrorIs(err, apperrors.ErrUnauthorized)

	_, err = suite.service.AuthenticateUser(suite.ctx, "gone@example.com", "s3cret-pass")
	suite.ErrorIs(err, apperrors.ErrUnauthorized)

	_, err = suite.service.AuthenticateUser(suite.ctx, "nobody@example.com", "s3cret-pass")
	suite.ErrorIs(err, apperrors.ErrUnauthorized)

	_, err = suite.service.AuthenticateUser(suite.ctx, "broken@example.com", "s3cret-pass")
	suite.ErrorIs(err, assert.AnError)
}

// --- Token service ---

func TestTokenService(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		JWTSecret:                  "token-service-test-secret",
		JWTExpiryDuration:          time.Hour,
		JWTIssuer:                  "oversight-test",
		RefreshTokenExpiryDuration: time.Hour,
	}
	repo := new(MockUserRepository)
	tokens := services.NewTokenService(cfg, services.NewUserService(repo))

	user := &domain.User{UserID: "u-1", Name: "Alice", Role: domain.RoleHOD, Department: "IT", IsActive: true}

	t.Run("access token carries identity", func(t *testing.T) {
		token, expiry, err := tokens.GenerateAccessToken(ctx, user)
		assert.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, time.Minute)

		claims, err := utils.ParseAndValidateJWT(token, cfg.JWTSecret)
		assert.NoError(t, err)
		assert.Equal(t, user.Identity(), claims.Identity())
	})

	t.Run("inactive user gets no token", func(t *testing.T) {
		_, _, err := tokens.GenerateAccessToken(ctx, &domain.User{UserID: "u-2", Role: domain.RoleEmployee})
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("refresh token round trip", func(t *testing.T) {
		raw, expiry, err := tokens.GenerateRefreshToken(ctx, user)
		assert.NoError(t, err)
		assert.Len(t, raw, 64)

		stored := *user
		stored.RefreshTokenHash = utils.HashRefreshToken(raw)
		stored.RefreshTokenExpiryTime = &expiry
		repo.On("FindUserByID", ctx, "u-1").Return(&stored, nil).Twice()

		got, err := tokens.ValidateAndParseRefreshToken(ctx, "u-1", raw)
		assert.NoError(t, err)
		assert.Equal(t, "u-1", got.UserID)

		_, err = tokens.ValidateAndParseRefreshToken(ctx, "u-1", "not-the-token")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("expired refresh token", func(t *testing.T) {
		past := time.Now().Add(-time.Minute)
		stored := &domain.User{UserID: "u-3", IsActive: true, RefreshTokenHash: utils.HashRefreshToken("x"), RefreshTokenExpiryTime: &past}
		repo.On("FindUserByID", ctx, "u-3").Return(stored, nil).Once()

		_, err := tokens.ValidateAndParseRefreshToken(ctx, "u-3", "x")
		assert.ErrorIs(t, err, apperrors.ErrRefreshTokenExpired)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo.On("FindUserByID", ctx, "ghost").Return(nil, apperrors.ErrNotFound).Once()

		_, err := tokens.ValidateAndParseRefreshToken(ctx, "ghost", "x")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}
