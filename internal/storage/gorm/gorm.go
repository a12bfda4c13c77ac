// Package gormstorage implements storage.Backend on top of a GORM connection.
// The sqlite and postgres backends embed it and only differ in how the
// connection is created and what happens to it afterwards.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sdam-project/sdam/internal/logging"
	"github.com/sdam-project/sdam/internal/model"
	"github.com/sdam-project/sdam/internal/model/convert"
	"github.com/sdam-project/sdam/internal/storage"
	"github.com/sdam-project/sdam/pkg/core"

	"gorm.io/gorm"
)

// Dependencies holds everything the GORM backend needs.
type Dependencies struct {
	DB         *gorm.DB
	SessionID  string
	LogManager *logging.SlogManager
}

// Backend stores the marks of one session in the marks table.
type Backend struct {
	deps Dependencies

	// mu serializes id assignment with the matching insert
	mu        sync.Mutex
	idCounter uint64

	lastWrite atomic.Int64
}

// New creates a GORM backend. Init must be called before use.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{deps: deps}
}

// DB exposes the connection for wrappers that manage it.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema, registers the session and resumes id assignment.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend: no database")
	}
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	session := model.Session{ID: b.deps.SessionID}
	if err := b.deps.DB.Where(model.Session{ID: b.deps.SessionID}).
		Attrs(model.Session{StartedAt: time.Now().UTC()}).
		FirstOrCreate(&session).Error; err != nil {
		return fmt.Errorf("failed to register session: %w", err)
	}

	var next struct{ Max *uint64 }
	if err := b.sessionMarks().Select("MAX(mark_id) AS max").Scan(&next).Error; err != nil {
		return fmt.Errorf("failed to read mark ids: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if next.Max != nil {
		b.idCounter = *next.Max + 1
	}

	b.deps.LogManager.WriteLog("gorm:Init", fmt.Sprintf("session %s ready, next mark id %d", b.deps.SessionID, b.idCounter), "DEBUG")
	return nil
}

// GetLastDBWriteDuration returns how long the most recent write took.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

func (b *Backend) observe(start time.Time) {
	b.lastWrite.Store(int64(time.Since(start)))
}

// Close is a no-op; the owner of the connection closes it.
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) sessionMarks() *gorm.DB {
	return b.deps.DB.Model(&model.Mark{}).Where("session_id = ?", b.deps.SessionID)
}

// AddMark inserts a mark with the next id of the session.
func (b *Backend) AddMark(frame uint, category core.Category, label *string) (core.Mark, error) {
	defer b.observe(time.Now())
	if err := core.ValidateCategory(category); err != nil {
		return core.Mark{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	m := core.Mark{
		ID:          b.idCounter,
		FrameOffset: frame,
		Category:    category,
		Label:       storage.CloneLabel(label),
	}
	row := convert.MarkToModel(b.deps.SessionID, m)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return core.Mark{}, fmt.Errorf("failed to insert mark: %w", err)
	}
	b.idCounter++
	return m, nil
}

// EditMark overwrites the frame, category and label of a mark.
func (b *Backend) EditMark(id uint64, frame uint, category core.Category, label *string) error {
	defer b.observe(time.Now())
	if err := core.ValidateCategory(category); err != nil {
		return err
	}

	res := b.sessionMarks().Where("mark_id = ?", id).Updates(map[string]any{
		"frame_offset": frame,
		"category":     int(category),
		"label":        storage.CloneLabel(label),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update mark: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", storage.ErrMarkNotFound, id)
	}
	return nil
}

// DeleteMark removes a mark from the session.
func (b *Backend) DeleteMark(id uint64) error {
	defer b.observe(time.Now())
	res := b.deps.DB.Where("session_id = ? AND mark_id = ?", b.deps.SessionID, id).Delete(&model.Mark{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete mark: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", storage.ErrMarkNotFound, id)
	}
	return nil
}

// GetMark looks a mark up by id.
func (b *Backend) GetMark(id uint64) (core.Mark, bool, error) {
	var rows []model.Mark
	if err := b.sessionMarks().Where("mark_id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return core.Mark{}, false, err
	}
	if len(rows) == 0 {
		return core.Mark{}, false, nil
	}
	return convert.MarkFromModel(rows[0]), true, nil
}

// ListMarks returns the session's marks ordered by frame, then id.
func (b *Backend) ListMarks() ([]core.Mark, error) {
	var rows []model.Mark
	if err := b.sessionMarks().Order("frame_offset ASC, mark_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return convert.MarksFromModels(rows), nil
}

// ClosestMarkAfter returns the nearest mark strictly after frame.
func (b *Backend) ClosestMarkAfter(frame uint) (core.Mark, bool, error) {
	return b.first(b.sessionMarks().Where("frame_offset > ?", frame).Order("frame_offset ASC, mark_id ASC"))
}

// ClosestMarkBefore returns the nearest mark strictly before frame.
func (b *Backend) ClosestMarkBefore(frame uint) (core.Mark, bool, error) {
	return b.first(b.sessionMarks().Where("frame_offset < ?", frame).Order("frame_offset DESC, mark_id ASC"))
}

func (b *Backend) first(q *gorm.DB) (core.Mark, bool, error) {
	var rows []model.Mark
	if err := q.Limit(1).Find(&rows).Error; err != nil {
		return core.Mark{}, false, err
	}
	if len(rows) == 0 {
		return core.Mark{}, false, nil
	}
	return convert.MarkFromModel(rows[0]), true, nil
}

// ReplaceMarks swaps the session's marks in one transaction.
func (b *Backend) ReplaceMarks(marks []core.Mark) error {
	seen := make(map[uint64]bool, len(marks))
	rows := make([]model.Mark, 0, len(marks))
	var counter uint64
	for _, m := range marks {
		if err := core.ValidateCategory(m.Category); err != nil {
			return err
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate mark id %d", m.ID)
		}
		seen[m.ID] = true
		rows = append(rows, convert.MarkToModel(b.deps.SessionID, m))
		if m.ID+1 > counter {
			counter = m.ID + 1
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	defer b.observe(time.Now())

	err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", b.deps.SessionID).Delete(&model.Mark{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace marks: %w", err)
	}

	b.idCounter = counter
	b.deps.LogManager.WriteLog("gorm:ReplaceMarks", fmt.Sprintf("loaded %d marks", len(rows)), "DEBUG")
	return nil
}
