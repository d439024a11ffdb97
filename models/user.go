package models

import (
	"context"
	"fmt"
	"html"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/phonelink/devices_backend/config"
	"github.com/phonelink/devices_backend/utils"
)

type User struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Username    string    `gorm:"size:100;not null;unique" json:"username"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Email       *string   `gorm:"size:100;unique" json:"email"`
	Phone       string    `gorm:"size:20" json:"phone"`
	Password    string    `gorm:"size:255;not null" json:"-"`
	Role        Role      `gorm:"size:20;not null;index" json:"role"`
	WarehouseId *int      `gorm:"index" json:"warehouse_id"`
	StoreId     *int      `gorm:"index" json:"store_id"`
	IsActive    *bool     `gorm:"not null" json:"is_active"`
	FirstLogin  bool      `gorm:"not null;default:true" json:"first_login"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username    string `json:"username" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Role        Role   `json:"role" binding:"required"`
	WarehouseId *int   `json:"warehouse_id"`
	StoreId     *int   `json:"store_id"`
}

// CreatedCredentials is returned exactly once from user creation and
// password resets. The plain password lives only in this response; the
// database keeps the bcrypt hash.
type CreatedCredentials struct {
	User     *User  `json:"user"`
	Password string `json:"password"`
}

type LoginInfo struct {
	Token       string `json:"token"`
	Name        string `json:"name"`
	Role        Role   `json:"role"`
	WarehouseId *int   `json:"warehouse_id,omitempty"`
	StoreId     *int   `json:"store_id,omitempty"`
	FirstLogin  bool   `json:"first_login"`
}

func (result *User) PrepareGive() {
	result.Password = ""
}

func tokenLifespanHours() int {
	lifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil || lifespan <= 0 {
		return 24
	}
	return lifespan
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {
	db := config.GetDB()

	var user User
	if err := db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, utils.ValidationError("invalid username or password")
	}

	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, utils.ValidationError("invalid username or password")
	}

	if user.IsActive == nil || !*user.IsActive {
		return nil, utils.ForbiddenError("user is disabled")
	}

	warehouseId := 0
	if user.WarehouseId != nil {
		warehouseId = *user.WarehouseId
	}
	storeId := 0
	if user.StoreId != nil {
		storeId = *user.StoreId
	}
	token, err := utils.JwtGenerate(user.ID, string(user.Role), warehouseId, storeId)
	if err != nil {
		return nil, err
	}

	// session bookkeeping so every token of a user can be revoked at once
	if err := config.AddRedisSet("Tokens:"+user.Username, token); err != nil {
		return nil, err
	}
	if err := config.SetRedisValue("Token:"+token, user.Username,
		time.Duration(tokenLifespanHours())*time.Hour); err != nil {
		return nil, err
	}

	return &LoginInfo{
		Token:       token,
		Name:        user.Name,
		Role:        user.Role,
		WarehouseId: user.WarehouseId,
		StoreId:     user.StoreId,
		FirstLogin:  user.FirstLogin,
	}, nil
}

// destroy current session
func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, utils.ValidationError("token is required")
	}
	if err := config.RemoveRedisKey("Token:" + fmt.Sprint(token)); err != nil {
		return false, nil
	}
	// remove current token from the user's tokens set
	username, ok := utils.GetUserNameFromContext(ctx)
	if !ok || username == "" {
		return false, utils.NotFoundError("user not found")
	}
	if err := config.RemoveRedisSetMember("Tokens:"+username, token); err != nil {
		return false, err
	}
	return true, nil
}

func (user *User) DestroyAllSessions(ctx context.Context) error {
	allTokens, err := config.GetRedisSetMembers("Tokens:" + user.Username)
	if err != nil {
		return err
	}
	for _, token := range allTokens {
		if err := config.RemoveRedisKey("Token:" + token); err != nil {
			return err
		}
	}
	return config.RemoveRedisKey("Tokens:" + user.Username)
}

// normalizeScope pins the warehouse/store assignment to what the role
// needs and clears what it cannot use.
func (input *NewUser) normalizeScope(ctx context.Context) error {
	switch input.Role {
	case RoleWarehouse:
		if input.WarehouseId == nil {
			return utils.ValidationError("warehouse users require a warehouse assignment")
		}
		if _, err := utils.FetchModel[Warehouse](ctx, *input.WarehouseId); err != nil {
			return utils.NotFoundError("warehouse not found")
		}
		input.StoreId = nil
	case RoleStore:
		if input.StoreId == nil {
			return utils.ValidationError("store users require a store assignment")
		}
		if _, err := utils.FetchModel[Store](ctx, *input.StoreId); err != nil {
			return utils.NotFoundError("store not found")
		}
		input.WarehouseId = nil
	case RoleSuperAdmin, RoleAdmin, RoleCustomer:
		input.WarehouseId = nil
		input.StoreId = nil
	default:
		return utils.ValidationError("unknown role")
	}
	return nil
}

// CreateUser provisions an account with a generated password. The plain
// password is in the returned credentials only; it is never persisted and
// never shown again.
func CreateUser(ctx context.Context, input *NewUser) (*CreatedCredentials, error) {
	caller, err := requireAction(ctx, ActionUserManage)
	if err != nil {
		return nil, err
	}
	if input.Role == RoleSuperAdmin && caller.Role != RoleSuperAdmin {
		return nil, utils.ForbiddenError("only a superadmin can create superadmin accounts")
	}

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, utils.ValidationError("invalid email address")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, utils.ValidationError("invalid phone number")
		}
	}
	if err := input.normalizeScope(ctx); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&User{}).
		Where("username = ?", input.Username).
		Or("email = ? AND email IS NOT NULL", strings.ToLower(input.Email)).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.ConflictError("duplicate username or email")
	}

	plainPassword, err := utils.GeneratePassword(12)
	if err != nil {
		return nil, err
	}
	hashedPassword, err := utils.HashPassword(plainPassword)
	if err != nil {
		return nil, err
	}

	input.Email = strings.ToLower(input.Email)
	user := User{
		Username:    html.EscapeString(strings.TrimSpace(input.Username)),
		Name:        input.Name,
		Email:       utils.NilIfEmpty(input.Email),
		Phone:       input.Phone,
		Password:    string(hashedPassword),
		Role:        input.Role,
		WarehouseId: input.WarehouseId,
		StoreId:     input.StoreId,
		IsActive:    utils.NewTrue(),
		FirstLogin:  true,
	}

	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, utils.ConflictError("duplicate username or email")
		}
		return nil, err
	}
	user.PrepareGive()

	return &CreatedCredentials{User: &user, Password: plainPassword}, nil
}

// ResetPassword issues a fresh generated password for another user and
// kills every session they hold. One-shot response, same as CreateUser.
func ResetPassword(ctx context.Context, userId int) (*CreatedCredentials, error) {
	if _, err := requireAction(ctx, ActionUserManage); err != nil {
		return nil, err
	}

	user, err := utils.FetchModel[User](ctx, userId)
	if err != nil {
		return nil, utils.NotFoundError("user not found")
	}

	plainPassword, err := utils.GeneratePassword(12)
	if err != nil {
		return nil, err
	}
	hashedPassword, err := utils.HashPassword(plainPassword)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Model(user).Updates(map[string]interface{}{
		"password":    string(hashedPassword),
		"first_login": true,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := user.DestroyAllSessions(ctx); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	user.PrepareGive()
	user.FirstLogin = true
	return &CreatedCredentials{User: user, Password: plainPassword}, nil
}

// ChangePassword lets the caller rotate their own password. All existing
// sessions are destroyed; the caller logs in again with the new password.
func ChangePassword(ctx context.Context, oldPassword string, newPassword string) (*User, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, utils.ValidationError("user id is required")
	}
	if len(newPassword) < 8 {
		return nil, utils.ValidationError("new password must be at least 8 characters")
	}

	var user User
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&user, userId).Error; err != nil {
		return nil, err
	}
	if err := utils.ComparePassword(user.Password, oldPassword); err != nil {
		return nil, utils.ValidationError("old password is wrong")
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	tx := db.WithContext(ctx).Begin()
	if err := tx.Model(&user).Updates(map[string]interface{}{
		"password":    string(hashedPassword),
		"first_login": false,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := user.DestroyAllSessions(ctx); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	user.PrepareGive()
	return &user, nil
}

// ToggleUserStatus flips active/inactive. Deactivation destroys the
// user's sessions. A caller cannot deactivate their own account.
func ToggleUserStatus(ctx context.Context, userId int) (*User, error) {
	caller, err := requireAction(ctx, ActionUserManage)
	if err != nil {
		return nil, err
	}
	if caller.UserId == userId {
		return nil, utils.PreconditionError("cannot deactivate your own account")
	}

	user, err := utils.FetchModel[User](ctx, userId)
	if err != nil {
		return nil, utils.NotFoundError("user not found")
	}
	if user.Role == RoleSuperAdmin && caller.Role != RoleSuperAdmin {
		return nil, utils.ForbiddenError("only a superadmin can manage superadmin accounts")
	}

	newState := user.IsActive == nil || !*user.IsActive
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(user).Update("is_active", newState).Error; err != nil {
		return nil, err
	}
	user.IsActive = &newState

	if !newState {
		if err := user.DestroyAllSessions(ctx); err != nil {
			return nil, err
		}
	}
	user.PrepareGive()
	return user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	if _, err := requireAction(ctx, ActionUserManage); err != nil {
		return nil, err
	}

	user, err := utils.FetchModel[User](ctx, id)
	if err != nil {
		return nil, utils.NotFoundError("user not found")
	}
	user.PrepareGive()
	return user, nil
}

type UserFilters struct {
	Role        *Role
	WarehouseId *int
	StoreId     *int
}

func ListUsers(ctx context.Context, filters *UserFilters) ([]*User, error) {
	if _, err := requireAction(ctx, ActionUserManage); err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&User{})
	if filters != nil {
		if filters.Role != nil {
			dbCtx.Where("role = ?", *filters.Role)
		}
		if filters.WarehouseId != nil {
			dbCtx.Where("warehouse_id = ?", *filters.WarehouseId)
		}
		if filters.StoreId != nil {
			dbCtx.Where("store_id = ?", *filters.StoreId)
		}
	}

	var users []*User
	if err := dbCtx.Order("username asc").Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		u.PrepareGive()
	}
	return users, nil
}
