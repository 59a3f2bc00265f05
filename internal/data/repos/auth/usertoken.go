package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

type UserTokenRepo interface {
	Create(dbc dbctx.Context, userTokens []*auth.UserToken) ([]*auth.UserToken, error)
	GetByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*auth.UserToken, error)
	GetByRefreshToken(dbc dbctx.Context, refreshToken string) (*auth.UserToken, error)
	// DeleteByRefreshToken reports whether a row was removed.
	DeleteByRefreshToken(dbc dbctx.Context, refreshToken string) (bool, error)
	DeleteByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) error
	DeleteExpired(dbc dbctx.Context, before time.Time) (int64, error)
}

type userTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	repoLog := baseLog.With("repo", "UserTokenRepo")
	return &userTokenRepo{db: db, log: repoLog}
}

func (utr *userTokenRepo) Create(dbc dbctx.Context, userTokens []*auth.UserToken) ([]*auth.UserToken, error) {
	if len(userTokens) == 0 {
		return []*auth.UserToken{}, nil
	}
	if err := dbc.DB(utr.db).Create(&userTokens).Error; err != nil {
		return nil, err
	}
	return userTokens, nil
}

func (utr *userTokenRepo) GetByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*auth.UserToken, error) {
	var results []*auth.UserToken
	if len(userIDs) == 0 {
		return results, nil
	}
	if err := dbc.DB(utr.db).
		Where("user_id IN ?", userIDs).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (utr *userTokenRepo) GetByRefreshToken(dbc dbctx.Context, refreshToken string) (*auth.UserToken, error) {
	if refreshToken == "" {
		return nil, nil
	}
	var results []*auth.UserToken
	if err := dbc.DB(utr.db).
		Where("refresh_token = ?", refreshToken).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (utr *userTokenRepo) DeleteByRefreshToken(dbc dbctx.Context, refreshToken string) (bool, error) {
	if refreshToken == "" {
		return false, nil
	}
	res := dbc.DB(utr.db).
		Where("refresh_token = ?", refreshToken).
		Delete(&auth.UserToken{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (utr *userTokenRepo) DeleteByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	return dbc.DB(utr.db).
		Where("user_id IN ?", userIDs).
		Delete(&auth.UserToken{}).Error
}

func (utr *userTokenRepo) DeleteExpired(dbc dbctx.Context, before time.Time) (int64, error) {
	res := dbc.DB(utr.db).
		Where("expires_at <= ?", before).
		Delete(&auth.UserToken{})
	return res.RowsAffected, res.Error
}
