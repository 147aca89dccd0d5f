package services

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"dojo/internal/clock"
	"dojo/internal/database"
	"dojo/internal/dates"
	apperrors "dojo/internal/errors"
	"dojo/internal/logger"
	"dojo/internal/models"
)

// categoryService handles category-related business logic.
type categoryService struct {
	db    *database.Writer
	clock clock.Clock
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *database.Writer, clk clock.Clock) CategoryServicer {
	return &categoryService{db: db, clock: clk}
}

// CreateCategory creates a budget category. The id defaults to a slug of the name.
func (s *categoryService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	id := Slugify(in.ID)
	if id == "" {
		id = Slugify(name)
	}
	if id == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category id must contain letters or digits")
	}
	if strings.HasPrefix(id, models.PaymentCategoryPrefix) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
			"category ids starting with "+models.PaymentCategoryPrefix+" are reserved for credit card payments")
	}

	category := &models.Category{ID: id, GroupID: in.GroupID, Name: name, IsActive: true}
	if in.Goal != nil {
		if err := setGoal(category, in.Goal); err != nil {
			return nil, err
		}
	}
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Category{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.WithMessage(apperrors.ErrCategoryExists, "category "+id+" already exists")
		}
		if err := checkGroup(tx, in.GroupID); err != nil {
			return err
		}

		now := s.clock.Now()
		category.CreatedAt = now
		category.UpdatedAt = now
		if err := tx.Create(category).Error; err != nil {
			return err
		}
		return recordEvent(tx, EventCategoryCreated, "category", id, category, now)
	})
	if err != nil {
		return nil, mapError(err)
	}

	logger.Get().Infow("category created", "category_id", id)
	return category, nil
}

// GetCategory returns a category by id.
func (s *categoryService) GetCategory(ctx context.Context, categoryID string) (*models.Category, error) {
	category, err := loadCategory(s.db.DB().WithContext(ctx), categoryID)
	if err != nil {
		return nil, mapError(err)
	}
	return category, nil
}

// ListCategories returns categories ordered by group and name.
func (s *categoryService) ListCategories(ctx context.Context, filter CategoryFilter) ([]models.Category, error) {
	q := s.db.DB().WithContext(ctx).Model(&models.Category{})
	if !filter.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if !filter.IncludeSystem {
		q = q.Where("is_system = ?", false)
	}
	if filter.GroupID != "" {
		q = q.Where("group_id = ?", filter.GroupID)
	}

	var categories []models.Category
	if err := q.Order("group_id, name").Find(&categories).Error; err != nil {
		return nil, mapError(err)
	}
	return categories, nil
}

// UpdateCategory renames or regroups a category and sets or clears its goal.
func (s *categoryService) UpdateCategory(ctx context.Context, categoryID string, upd CategoryUpdate) (*models.Category, error) {
	var category *models.Category
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		category, err = loadCategory(tx, categoryID)
		if err != nil {
			return err
		}
		if category.IsSystem {
			return apperrors.ErrSystemCategory
		}

		now := s.clock.Now()
		updates := map[string]any{"updated_at": now}
		if upd.Name != nil {
			name := strings.TrimSpace(*upd.Name)
			if name == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "category name cannot be empty")
			}
			updates["name"] = name
			category.Name = name
		}
		if upd.GroupID != nil {
			groupID := upd.GroupID
			if *groupID == "" {
				groupID = nil
			}
			if err := checkGroup(tx, groupID); err != nil {
				return err
			}
			updates["group_id"] = groupID
			category.GroupID = groupID
		}
		switch {
		case upd.ClearGoal:
			clearGoal(category)
		case upd.Goal != nil:
			if err := setGoal(category, upd.Goal); err != nil {
				return err
			}
		}
		if upd.ClearGoal || upd.Goal != nil {
			updates["goal_type"] = category.GoalType
			updates["goal_amount_minor"] = category.GoalAmountMinor
			updates["goal_target_date"] = category.GoalTargetDate
			updates["goal_frequency"] = category.GoalFrequency
		}
		category.UpdatedAt = now

		if err := tx.Model(&models.Category{}).Where("category_id = ?", categoryID).Updates(updates).Error; err != nil {
			return err
		}
		return recordEvent(tx, EventCategoryUpdated, "category", categoryID, category, now)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return category, nil
}

// RetireCategory marks a category inactive. Its monthly state and history
// are kept and still count towards Ready to Assign.
func (s *categoryService) RetireCategory(ctx context.Context, categoryID string) error {
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		category, err := loadCategory(tx, categoryID)
		if err != nil {
			return err
		}
		if category.IsSystem {
			return apperrors.ErrSystemCategory
		}
		if !category.IsActive {
			return nil
		}

		now := s.clock.Now()
		err = tx.Model(&models.Category{}).Where("category_id = ?", categoryID).
			Updates(map[string]any{"is_active": false, "updated_at": now}).Error
		if err != nil {
			return err
		}
		return recordEvent(tx, EventCategoryRetired, "category", categoryID, nil, now)
	})
	if err != nil {
		return mapError(err)
	}

	logger.Get().Infow("category retired", "category_id", categoryID)
	return nil
}

// CreateGroup creates a category group.
func (s *categoryService) CreateGroup(ctx context.Context, in GroupInput) (*models.CategoryGroup, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "group name is required")
	}
	id := Slugify(in.ID)
	if id == "" {
		id = Slugify(name)
	}
	if id == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "group id must contain letters or digits")
	}

	group := &models.CategoryGroup{ID: id, Name: name, SortOrder: in.SortOrder, IsActive: true}
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.CategoryGroup{}).Where("group_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.WithMessage(apperrors.ErrGroupExists, "group "+id+" already exists")
		}

		now := s.clock.Now()
		group.CreatedAt = now
		group.UpdatedAt = now
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		return recordEvent(tx, EventGroupCreated, "category_group", id, group, now)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return group, nil
}

// ListGroups returns active groups in display order.
func (s *categoryService) ListGroups(ctx context.Context) ([]models.CategoryGroup, error) {
	var groups []models.CategoryGroup
	err := s.db.DB().WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order, name").
		Find(&groups).Error
	if err != nil {
		return nil, mapError(err)
	}
	return groups, nil
}

// UpdateGroup renames or reorders a category group.
func (s *categoryService) UpdateGroup(ctx context.Context, groupID string, upd GroupUpdate) (*models.CategoryGroup, error) {
	var group *models.CategoryGroup
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		group, err = loadGroup(tx, groupID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		updates := map[string]any{"updated_at": now}
		if upd.Name != nil {
			name := strings.TrimSpace(*upd.Name)
			if name == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "group name cannot be empty")
			}
			updates["name"] = name
			group.Name = name
		}
		if upd.SortOrder != nil {
			updates["sort_order"] = *upd.SortOrder
			group.SortOrder = *upd.SortOrder
		}
		group.UpdatedAt = now

		if err := tx.Model(&models.CategoryGroup{}).Where("group_id = ?", groupID).Updates(updates).Error; err != nil {
			return err
		}
		return recordEvent(tx, EventGroupUpdated, "category_group", groupID, group, now)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return group, nil
}

// RetireGroup hides a category group. Its categories keep their group and
// their money; new categories can no longer join it. The credit card
// payments group is managed by the ledger and cannot be retired.
func (s *categoryService) RetireGroup(ctx context.Context, groupID string) error {
	if groupID == models.GroupCreditCardPayments {
		return mapError(apperrors.WithMessage(apperrors.ErrSystemCategory, "group "+groupID+" is managed by the ledger"))
	}

	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		group, err := loadGroup(tx, groupID)
		if err != nil {
			return err
		}
		if !group.IsActive {
			return nil
		}

		now := s.clock.Now()
		err = tx.Model(&models.CategoryGroup{}).Where("group_id = ?", groupID).
			Updates(map[string]any{"is_active": false, "updated_at": now}).Error
		if err != nil {
			return err
		}
		return recordEvent(tx, EventGroupRetired, "category_group", groupID, nil, now)
	})
	if err != nil {
		return mapError(err)
	}

	logger.Get().Infow("category group retired", "group_id", groupID)
	return nil
}

// SeedSystemCategories inserts any missing system category.
func (s *categoryService) SeedSystemCategories(ctx context.Context) error {
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		return database.SeedSystemCategories(tx, s.clock.Now())
	})
	return mapError(err)
}

func loadGroup(tx *gorm.DB, groupID string) (*models.CategoryGroup, error) {
	var group models.CategoryGroup
	if err := tx.Where("group_id = ?", groupID).Take(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrGroupNotFound, "group "+groupID+" not found")
		}
		return nil, err
	}
	return &group, nil
}

// checkGroup requires groupID, when set, to name an active group.
func checkGroup(tx *gorm.DB, groupID *string) error {
	if groupID == nil {
		return nil
	}
	group, err := loadGroup(tx, *groupID)
	if err != nil {
		return err
	}
	if !group.IsActive {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "group "+group.ID+" is retired")
	}
	return nil
}

// setGoal validates g and copies it onto c.
func setGoal(c *models.Category, g *CategoryGoal) error {
	if g.AmountMinor <= 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "goal_amount_minor must be positive")
	}

	clearGoal(c)
	switch g.Type {
	case models.GoalTypeTargetDate:
		if g.TargetDate == nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "a target_date goal needs goal_target_date")
		}
		if g.Frequency != "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "a target_date goal takes no goal_frequency")
		}
		d := dates.Day(*g.TargetDate)
		c.GoalTargetDate = &d
	case models.GoalTypeRecurring:
		if !g.Frequency.Valid() {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "a recurring goal needs goal_frequency of monthly, quarterly or yearly")
		}
		if g.TargetDate != nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "a recurring goal takes no goal_target_date")
		}
		freq := g.Frequency
		c.GoalFrequency = &freq
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "goal_type must be target_date or recurring")
	}

	goalType := g.Type
	amount := g.AmountMinor
	c.GoalType = &goalType
	c.GoalAmountMinor = &amount
	return nil
}

func clearGoal(c *models.Category) {
	c.GoalType = nil
	c.GoalAmountMinor = nil
	c.GoalTargetDate = nil
	c.GoalFrequency = nil
}

// Slugify lowercases s and collapses every run of other characters into a
// single underscore.
func Slugify(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
