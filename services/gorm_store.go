package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"arena-battle-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// AutoMigrate creates or updates the tables the store uses.
func (s *GormStore) AutoMigrate() error {
	if err := s.DB.AutoMigrate(
		&models.Room{},
		&models.Participant{},
		&models.BattleEvent{},
		&models.ArenaUser{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (s *GormStore) CreateRoom(ctx context.Context, room *models.Room) error {
	if err := s.DB.WithContext(ctx).Create(room).Error; err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

func (s *GormStore) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room
	err := s.DB.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC, user_id ASC")
		}).
		Where("id = ?", roomID).
		First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room %s: %w", roomID, err)
	}
	return &room, nil
}

func (s *GormStore) ListRoomsByStatus(ctx context.Context, statuses ...models.RoomStatus) ([]models.Room, error) {
	var rooms []models.Room
	if err := s.DB.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at ASC").
		Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

func (s *GormStore) AddParticipant(ctx context.Context, p *models.Participant) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", p.RoomID).
			First(&room).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return fmt.Errorf("failed to lock room for join: %w", err)
		}
		if room.Status != models.RoomStatusWaiting {
			return ErrRoomNotWaiting
		}

		var existing int64
		if err := tx.Model(&models.Participant{}).
			Where("room_id = ? AND user_id = ?", p.RoomID, p.UserID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check participant: %w", err)
		}
		if existing > 0 {
			return ErrAlreadyJoined
		}

		p.IsAlive = true
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("failed to add participant: %w", err)
		}
		return nil
	})
}

func (s *GormStore) GetParticipants(ctx context.Context, roomID string) ([]models.Participant, error) {
	var roster []models.Participant
	if err := s.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("joined_at ASC, user_id ASC").
		Find(&roster).Error; err != nil {
		return nil, fmt.Errorf("failed to load participants for room %s: %w", roomID, err)
	}
	return roster, nil
}

func (s *GormStore) TransitionRoom(ctx context.Context, roomID string, from []models.RoomStatus, to models.RoomStatus, at time.Time) error {
	updates := map[string]interface{}{"status": to}
	if to == models.RoomStatusActive {
		updates["started_at"] = at
	}
	if to.IsTerminal() {
		updates["ended_at"] = at
	}

	res := s.DB.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ? AND status IN ?", roomID, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to move room %s to %s: %w", roomID, to, res.Error)
	}
	if res.RowsAffected == 0 {
		if ok, err := s.roomExists(ctx, roomID); err != nil {
			return err
		} else if !ok {
			return ErrRoomNotFound
		}
		return transitionError(from)
	}
	return nil
}

func (s *GormStore) MarkEliminated(ctx context.Context, roomID, participantID string, attackerID *string, round int, at time.Time) error {
	res := s.DB.WithContext(ctx).
		Model(&models.Participant{}).
		Where("room_id = ? AND user_id = ? AND is_alive = ?", roomID, participantID, true).
		Updates(map[string]interface{}{
			"is_alive":            false,
			"eliminated_at_round": round,
			"eliminated_at":       at,
			"eliminated_by":       attackerID,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to eliminate %s in room %s: %w", participantID, roomID, res.Error)
	}
	if res.RowsAffected == 0 {
		return s.participantMustExist(ctx, roomID, participantID)
	}
	return nil
}

func (s *GormStore) MarkRevived(ctx context.Context, roomID, participantID string) error {
	res := s.DB.WithContext(ctx).
		Model(&models.Participant{}).
		Where("room_id = ? AND user_id = ? AND is_alive = ?", roomID, participantID, false).
		Updates(map[string]interface{}{
			"is_alive":            true,
			"eliminated_at_round": nil,
			"eliminated_at":       nil,
			"eliminated_by":       nil,
			"revived_count":       gorm.Expr("revived_count + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to revive %s in room %s: %w", participantID, roomID, res.Error)
	}
	if res.RowsAffected == 0 {
		return s.participantMustExist(ctx, roomID, participantID)
	}
	return nil
}

func (s *GormStore) SetWinner(ctx context.Context, roomID, participantID string, at time.Time) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", roomID).
			First(&room).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return fmt.Errorf("failed to lock room for winner: %w", err)
		}

		if room.Status == models.RoomStatusFinished && room.WinnerID != nil && *room.WinnerID == participantID {
			return nil
		}
		if room.Status != models.RoomStatusActive {
			return ErrRoomNotActive
		}

		if err := tx.Model(&models.Room{}).
			Where("id = ?", roomID).
			Updates(map[string]interface{}{
				"status":    models.RoomStatusFinished,
				"winner_id": participantID,
				"ended_at":  at,
			}).Error; err != nil {
			return fmt.Errorf("failed to set winner: %w", err)
		}
		return nil
	})
}

func (s *GormStore) SetArchiveURL(ctx context.Context, roomID, url string) error {
	if err := s.DB.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", roomID).
		Update("archive_url", url).Error; err != nil {
		return fmt.Errorf("failed to store archive url: %w", err)
	}
	return nil
}

func (s *GormStore) AppendEvent(ctx context.Context, ev models.BattleEvent) error {
	if err := s.DB.WithContext(ctx).Create(&ev).Error; err != nil {
		return fmt.Errorf("failed to append %s event for room %s: %w", ev.Type, ev.RoomID, err)
	}
	return nil
}

func (s *GormStore) ListEvents(ctx context.Context, roomID string) ([]models.BattleEvent, error) {
	var events []models.BattleEvent
	if err := s.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("round ASC, sequence ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events for room %s: %w", roomID, err)
	}
	return events, nil
}

// UpsertProfiles writes profiles keyed by external user id. Rows that fail are
// logged and skipped.
func (s *GormStore) UpsertProfiles(ctx context.Context, users []models.ArenaUser) (int, error) {
	var upserted int
	var errs []error
	for _, u := range users {
		if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"username", "display_name", "avatar_url", "updated_at",
			}),
		}).Create(&u).Error; err != nil {
			log.Printf("[SYNC] ⚠️ Failed to upsert arena_user (external_id=%q, username=%q): %v",
				u.ExternalUserID, u.Username, err)
			errs = append(errs, err)
			continue
		}
		upserted++
	}
	if upserted == 0 && len(errs) > 0 {
		return 0, fmt.Errorf("failed to upsert any profile: %w", errors.Join(errs...))
	}
	return upserted, nil
}

func (s *GormStore) LastProfileUpdate(ctx context.Context) (time.Time, error) {
	var last sql.NullTime
	if err := s.DB.WithContext(ctx).
		Raw("SELECT MAX(updated_at) FROM arena_users WHERE deleted_at IS NULL").
		Scan(&last).Error; err != nil {
		return time.Time{}, fmt.Errorf("failed to read last profile update: %w", err)
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return last.Time, nil
}

func (s *GormStore) LookupProfile(ctx context.Context, externalUserID string) (*models.ArenaUser, error) {
	var u models.ArenaUser
	err := s.DB.WithContext(ctx).Where("external_user_id = ?", externalUserID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up profile %s: %w", externalUserID, err)
	}
	return &u, nil
}

func (s *GormStore) SearchProfiles(ctx context.Context, query string, limit int) ([]models.ArenaUser, error) {
	db := s.DB.WithContext(ctx).Model(&models.ArenaUser{}).Order("username ASC").Limit(limit)
	if query = strings.TrimSpace(query); query != "" {
		term := "%" + strings.ToLower(query) + "%"
		db = db.Where("LOWER(username) LIKE ? OR LOWER(display_name) LIKE ?", term, term)
	}
	var users []models.ArenaUser
	if err := db.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("profile search failed: %w", err)
	}
	return users, nil
}

func (s *GormStore) roomExists(ctx context.Context, roomID string) (bool, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.Room{}).Where("id = ?", roomID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check room %s: %w", roomID, err)
	}
	return n > 0, nil
}

func (s *GormStore) participantMustExist(ctx context.Context, roomID, participantID string) error {
	var n int64
	if err := s.DB.WithContext(ctx).
		Model(&models.Participant{}).
		Where("room_id = ? AND user_id = ?", roomID, participantID).
		Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check participant: %w", err)
	}
	if n == 0 {
		return ErrParticipantNotFound
	}
	return nil
}
