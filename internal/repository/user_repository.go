package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pog-gallery/internal/model"
)

var (
	// ErrVoteConflict 表示投票的比较并交换失败：读取之后 votes 列已被其他请求修改。
	ErrVoteConflict = errors.New("concurrent vote update")
	// ErrMediaNotFound 表示投票的目标媒体没有元数据记录。
	ErrMediaNotFound = errors.New("media not found")
	// ErrUserNotFound 表示投票的用户不存在。
	ErrUserNotFound = errors.New("user not found")
)

// VoteResult 是一次投票提交后的最新状态。
type VoteResult struct {
	VoteCount int
	UserScore int
	UserVote  int
}

// UserRepository 接口定义了用户数据的持久化操作。
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindWithPagination(ctx context.Context, offset, limit int) ([]model.User, int64, error)
	Delete(ctx context.Context, username string) error
	IncrementUploadCount(ctx context.Context, username string) error
	// ApplyVote 在一个事务中提交投票：同值重复投票视为撤销。
	// 用户行使用 votes 列做比较并交换，失败时返回 ErrVoteConflict，调用方可以重试。
	ApplyVote(ctx context.Context, username, mediaID string, voteType int) (*VoteResult, error)
}

// userRepository 是 UserRepository 接口的 GORM 实现。
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create 在数据库中创建一个新的用户记录。
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if user.Votes == nil {
		user.Votes = model.VoteMap{}
	}
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByUsername 根据用户名从数据库中查找一个用户。
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindWithPagination 从数据库中分页检索用户记录。
// 它返回用户列表、总记录数和可能发生的错误。
func (r *userRepository) FindWithPagination(ctx context.Context, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{})

	// 首先计算总记录数
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 然后根据偏移量和限制获取当前页的数据
	if err := db.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Delete 删除用户，用户不存在时返回 gorm.ErrRecordNotFound。
func (r *userRepository) Delete(ctx context.Context, username string) error {
	result := r.db.WithContext(ctx).Where("username = ?", username).Delete(&model.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) IncrementUploadCount(ctx context.Context, username string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ?", username).
		UpdateColumn("upload_count", gorm.Expr("upload_count + ?", 1)).Error
}

func (r *userRepository) ApplyVote(ctx context.Context, username, mediaID string, voteType int) (*VoteResult, error) {
	var res VoteResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// votes 只读取一次：旧投票与 CAS 的比较值必须来自同一次读取
		var row struct {
			ID    uint
			Votes sql.NullString
		}
		if err := tx.Model(&model.User{}).Select("id, votes").Where("username = ?", username).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		current := model.VoteMap{}
		if row.Votes.Valid {
			if err := current.Scan(row.Votes.String); err != nil {
				return fmt.Errorf("decode votes: %w", err)
			}
		}

		var media model.MediaUpload
		if err := tx.Where("file_id = ?", mediaID).First(&media).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMediaNotFound
			}
			return err
		}

		oldVote := current[mediaID]
		newVote := voteType
		if oldVote == voteType {
			newVote = 0
		}
		delta := newVote - oldVote

		err := tx.Model(&model.MediaUpload{}).Where("id = ?", media.ID).Updates(map[string]interface{}{
			"vote_count": gorm.Expr("vote_count + ?", delta),
			"upvotes":    gorm.Expr("upvotes + ?", indicator(newVote == 1)-indicator(oldVote == 1)),
			"downvotes":  gorm.Expr("downvotes + ?", indicator(newVote == -1)-indicator(oldVote == -1)),
		}).Error
		if err != nil {
			return err
		}

		votes := current.Clone()
		if newVote == 0 {
			delete(votes, mediaID)
		} else {
			votes[mediaID] = newVote
		}
		encoded, err := votes.Value()
		if err != nil {
			return fmt.Errorf("encode votes: %w", err)
		}

		cas := tx.Model(&model.User{}).Where("id = ?", row.ID)
		if row.Votes.Valid {
			cas = cas.Where("votes = ?", row.Votes.String)
		} else {
			cas = cas.Where("votes IS NULL")
		}
		result := cas.Updates(map[string]interface{}{
			"votes": encoded,
			"score": gorm.Expr("score + ?", delta),
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrVoteConflict
		}

		if err := tx.Model(&model.MediaUpload{}).Select("vote_count").Where("id = ?", media.ID).Scan(&res.VoteCount).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.User{}).Select("score").Where("id = ?", row.ID).Scan(&res.UserScore).Error; err != nil {
			return err
		}
		res.UserVote = newVote
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func indicator(b bool) int {
	if b {
		return 1
	}
	return 0
}
