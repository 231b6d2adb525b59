package db

import (
	"github.com/go-sql-driver/mysql"
)

var (
	ErrDuplicateEntryCode = 1062
)

func MysqlErrCode(err error) int {
	mysqlErr, ok := err.(*mysql.MySQLError)
	if !ok {
		return 0
	}
	return int(mysqlErr.Number)
}

// Checkpoint is one named progress marker, either the last ingested block height or the last
// reconciled updatedOn of a proof market status.
type Checkpoint struct {
	Id          int64
	Name        string `gorm:"NOT NULL;uniqueIndex:idx_checkpoint_name;size:64"`
	Value       uint64 `gorm:"NOT NULL"`
	UpdatedTime int64  `gorm:"autoUpdateTime"`
}

func (*Checkpoint) TableName() string {
	return "checkpoint"
}
