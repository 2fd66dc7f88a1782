package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// User 对应于数据库中的 usernames 表。
type User struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username    string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"username"`
	Password    string    `gorm:"type:varchar(255);not null" json:"-"`
	Score       int       `gorm:"not null;default:0" json:"score"`
	Votes       VoteMap   `gorm:"type:text" json:"votes"`
	UploadCount int       `gorm:"not null;default:0" json:"uploadCount"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "usernames"
}

// VoteMap 记录用户对每个媒体的投票，值为 -1、0 或 1。
// 以 JSON 文本存储；encoding/json 对 map 的键排序，同一内容总是序列化为同一字符串，
// 因此该列可以直接用于比较并交换（CAS）更新。
type VoteMap map[string]int

// Value 实现 driver.Valuer。nil 与空 map 都存储为 "{}"。
func (m VoteMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]int(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner。
func (m *VoteMap) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = VoteMap{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type for VoteMap: %T", src)
	}
	if len(raw) == 0 {
		*m = VoteMap{}
		return nil
	}
	votes := make(map[string]int)
	if err := json.Unmarshal(raw, &votes); err != nil {
		return err
	}
	*m = votes
	return nil
}

// Clone 返回 VoteMap 的副本。
func (m VoteMap) Clone() VoteMap {
	out := make(VoteMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
