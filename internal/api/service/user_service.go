package service

import (
	"errors"

	"clixen"
	"clixen/internal/api/handler/mapper"
	"clixen/internal/api/handler/request"
	"clixen/internal/api/handler/response"
	"clixen/internal/api/models"
	"clixen/internal/api/repo"
	"clixen/pkg"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	userRepo   *repo.UserRepository
	config     clixen.AppConfig
	logger     zerolog.Logger
	userMapper mapper.UserMapper
}

func NewUserService() *UserService {
	return &UserService{
		userRepo: repo.NewUserRepository(),
		config:   clixen.GetConfig(),
		logger:   clixen.Logger,
	}
}

func (slf *UserService) Register(registerDTO request.RegisterDTO) (*response.AuthResponseDTO, error) {
	exists, err := slf.userRepo.ExistsByEmail(registerDTO.Email)
	if err != nil {
		slf.logger.Error().Err(err).Msg("Error checking if user exists")
		return nil, err
	}
	if exists {
		return nil, errors.New("user with this email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(registerDTO.Password), bcrypt.DefaultCost)
	if err != nil {
		slf.logger.Error().Err(err).Msg("Error hashing password")
		return nil, err
	}

	user := models.User{
		// The identity namespaces the user's workflows on the shared engine.
		Identity:  uuid.NewString(),
		Email:     registerDTO.Email,
		Password:  string(hashedPassword),
		FirstName: registerDTO.FirstName,
		LastName:  registerDTO.LastName,
		Role:      models.RoleUser,
		Active:    true,
	}

	if err = slf.userRepo.Create(&user); err != nil {
		slf.logger.Error().Err(err).Msg("Error creating user")
		return nil, err
	}

	return slf.issueTokens(user)
}

func (slf *UserService) Login(loginDTO request.LoginDTO) (*response.AuthResponseDTO, error) {
	user, err := slf.userRepo.FindByEmail(loginDTO.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invalid email or password")
		}
		slf.logger.Error().Err(err).Msg("Error finding user by email")
		return nil, err
	}

	if !user.Active {
		return nil, errors.New("account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(loginDTO.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}

	return slf.issueTokens(user)
}

func (slf *UserService) RefreshToken(refreshDTO request.RefreshTokenDTO) (*response.AuthResponseDTO, error) {
	claims, err := pkg.ValidateToken(refreshDTO.RefreshToken, slf.config.JWTConfig.Secret)
	if err != nil {
		return nil, errors.New("invalid or expired refresh token")
	}

	user, err := slf.userRepo.FindByID(claims.UserID)
	if err != nil {
		return nil, errors.New("user not found")
	}
	if user.RefreshToken != refreshDTO.RefreshToken {
		return nil, errors.New("refresh token has been revoked")
	}

	return slf.issueTokens(user)
}

func (slf *UserService) GetByID(id uint) (response.UserResponseDTO, error) {
	user, err := slf.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.UserResponseDTO{}, errors.New("user not found")
		}
		slf.logger.Error().Err(err).Uint("userId", id).Msg("Error finding user by ID")
		return response.UserResponseDTO{}, err
	}
	return slf.userMapper.EntityToUserResponse(user), nil
}

// FindByID returns the raw user entity for internal callers.
func (slf *UserService) FindByID(id uint) (models.User, error) {
	return slf.userRepo.FindByID(id)
}

// FindAll lists every account. Admin only.
func (slf *UserService) FindAll() ([]response.UserResponseDTO, error) {
	users, err := slf.userRepo.FindAll()
	if err != nil {
		slf.logger.Error().Err(err).Msg("Error listing users")
		return nil, err
	}
	out := make([]response.UserResponseDTO, 0, len(users))
	for _, user := range users {
		out = append(out, slf.userMapper.EntityToUserResponse(user))
	}
	return out, nil
}

func (slf *UserService) issueTokens(user models.User) (*response.AuthResponseDTO, error) {
	token, err := pkg.GenerateToken(user.ID, user.Identity, user.Email, string(user.Role), slf.config.JWTConfig.Secret, slf.config.JWTConfig.Expiration)
	if err != nil {
		slf.logger.Error().Err(err).Msg("Error generating token")
		return nil, err
	}

	refreshToken, err := pkg.GenerateRefreshToken(user.ID, slf.config.JWTConfig.Secret, slf.config.JWTConfig.RefreshExpiration)
	if err != nil {
		slf.logger.Error().Err(err).Msg("Error generating refresh token")
		return nil, err
	}

	user.RefreshToken = refreshToken
	if err = slf.userRepo.Update(&user); err != nil {
		slf.logger.Error().Err(err).Msg("Error updating user with refresh token")
		return nil, err
	}

	slf.logger.Info().Uint("userId", user.ID).Msg("Issued tokens")
	return &response.AuthResponseDTO{
		Token:        token,
		RefreshToken: refreshToken,
		User:         slf.userMapper.EntityToUserResponse(user),
	}, nil
}
