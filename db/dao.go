package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CheckpointDao interface {
	GetCheckpoint(name string) (*Checkpoint, error)
	CreateCheckpointIfAbsent(name string) (*Checkpoint, error)
	SaveCheckpoint(name string, value uint64) error
	ListCheckpoints() ([]*Checkpoint, error)
}

type RelayerDB struct {
	db *gorm.DB
}

func NewRelayerDB(db *gorm.DB) CheckpointDao {
	return &RelayerDB{
		db,
	}
}

// GetCheckpoint returns nil without error if the checkpoint does not exist.
func (d *RelayerDB) GetCheckpoint(name string) (*Checkpoint, error) {
	cp := Checkpoint{}
	err := d.db.Model(Checkpoint{}).Where("name = ?", name).Take(&cp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cp, nil
}

func (d *RelayerDB) CreateCheckpointIfAbsent(name string) (*Checkpoint, error) {
	cp, err := d.GetCheckpoint(name)
	if err != nil || cp != nil {
		return cp, err
	}
	cp = &Checkpoint{Name: name}
	err = d.db.Transaction(func(dbTx *gorm.DB) error {
		return dbTx.Create(cp).Error
	})
	if err != nil {
		if MysqlErrCode(err) == ErrDuplicateEntryCode || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return d.GetCheckpoint(name)
		}
		return nil, err
	}
	return cp, nil
}

func (d *RelayerDB) SaveCheckpoint(name string, value uint64) error {
	return d.db.Transaction(func(dbTx *gorm.DB) error {
		return dbTx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_time"}),
		}).Create(&Checkpoint{Name: name, Value: value}).Error
	})
}

func (d *RelayerDB) ListCheckpoints() ([]*Checkpoint, error) {
	cps := make([]*Checkpoint, 0)
	if err := d.db.Order("name asc").Find(&cps).Error; err != nil {
		return cps, err
	}
	return cps, nil
}

// CheckpointStore keeps one named checkpoint in the checkpoint table.
type CheckpointStore struct {
	dao  CheckpointDao
	name string
}

func NewCheckpointStore(dao CheckpointDao, name string) *CheckpointStore {
	return &CheckpointStore{dao: dao, name: name}
}

func (s *CheckpointStore) Load() (uint64, error) {
	cp, err := s.dao.CreateCheckpointIfAbsent(s.name)
	if err != nil {
		return 0, err
	}
	return cp.Value, nil
}

func (s *CheckpointStore) Save(value uint64) error {
	return s.dao.SaveCheckpoint(s.name, value)
}

func AutoMigrateDB(db *gorm.DB) {
	if err := db.AutoMigrate(&Checkpoint{}); err != nil {
		panic(err)
	}
}
