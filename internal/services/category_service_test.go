package services

import (
	"context"
	"testing"

	"dojo/internal/dates"
	"dojo/internal/models"
	"dojo/internal/testutil"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Groceries", "groceries"},
		{"  Dining Out  ", "dining_out"},
		{"Kids' Stuff & Toys", "kids_stuff_toys"},
		{"car--insurance", "car_insurance"},
		{"2025 Vacation", "2025_vacation"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCategoryService(t *testing.T) {
	ctx := context.Background()

	t.Run("create_with_slug_and_group", func(t *testing.T) {
		l := setupLedger(t)
		group, err := l.Categories.CreateGroup(ctx, GroupInput{Name: "Monthly Bills", SortOrder: 1})
		testutil.AssertNoError(t, err)
		if group.ID != "monthly_bills" {
			t.Errorf("expected slug id, got %s", group.ID)
		}

		category, err := l.Categories.CreateCategory(ctx, CategoryInput{Name: "Electric Bill", GroupID: &group.ID})
		testutil.AssertNoError(t, err)
		if category.ID != "electric_bill" || category.GroupID == nil || *category.GroupID != group.ID {
			t.Errorf("unexpected category %+v", category)
		}

		_, err = l.Categories.CreateCategory(ctx, CategoryInput{Name: "electric bill"})
		testutil.AssertAppError(t, err, "CATEGORY_EXISTS")

		_, err = l.Categories.CreateGroup(ctx, GroupInput{Name: "Monthly Bills"})
		testutil.AssertAppError(t, err, "GROUP_EXISTS")

		_, err = l.Categories.CreateCategory(ctx, CategoryInput{Name: "Orphan", GroupID: ptr("missing")})
		testutil.AssertAppError(t, err, "GROUP_NOT_FOUND")

		_, err = l.Categories.CreateCategory(ctx, CategoryInput{Name: "  "})
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	})

	t.Run("system_categories_are_immutable", func(t *testing.T) {
		l := setupLedger(t)

		_, err := l.Categories.UpdateCategory(ctx, models.CategoryReadyToAssign, CategoryUpdate{Name: ptr("Income")})
		testutil.AssertAppError(t, err, "SYSTEM_CATEGORY")
		testutil.AssertAppError(t, l.Categories.RetireCategory(ctx, models.CategoryAccountTransfer), "SYSTEM_CATEGORY")
	})

	t.Run("update_and_retire", func(t *testing.T) {
		l := setupLedger(t)
		group := testutil.CreateTestGroup(t, l.db)
		category := testutil.CreateTestCategory(t, l.db)

		updated, err := l.Categories.UpdateCategory(ctx, category.ID, CategoryUpdate{Name: ptr("Renamed"), GroupID: &group.ID})
		testutil.AssertNoError(t, err)
		if updated.Name != "Renamed" || updated.GroupID == nil || *updated.GroupID != group.ID {
			t.Errorf("unexpected update %+v", updated)
		}

		ungrouped, err := l.Categories.UpdateCategory(ctx, category.ID, CategoryUpdate{GroupID: ptr("")})
		testutil.AssertNoError(t, err)
		if ungrouped.GroupID != nil {
			t.Errorf("expected group cleared, got %v", *ungrouped.GroupID)
		}

		testutil.AssertNoError(t, l.Categories.RetireCategory(ctx, category.ID))

		active, err := l.Categories.ListCategories(ctx, CategoryFilter{})
		testutil.AssertNoError(t, err)
		for _, c := range active {
			if c.ID == category.ID {
				t.Error("expected retired category to be hidden")
			}
			if c.IsSystem {
				t.Error("expected system categories to be hidden by default")
			}
		}

		all, err := l.Categories.ListCategories(ctx, CategoryFilter{IncludeInactive: true, IncludeSystem: true})
		testutil.AssertNoError(t, err)
		if len(all) != len(models.SystemCategories)+1 {
			t.Errorf("expected %d categories, got %d", len(models.SystemCategories)+1, len(all))
		}
	})

	t.Run("list_groups_and_seed", func(t *testing.T) {
		l := setupLedger(t)
		testutil.CreateTestCreditAccount(t, l.db)

		testutil.AssertNoError(t, l.Categories.SeedSystemCategories(ctx))
		testutil.AssertNoError(t, l.Categories.SeedSystemCategories(ctx))

		groups, err := l.Categories.ListGroups(ctx)
		testutil.AssertNoError(t, err)
		if len(groups) != 1 || groups[0].ID != models.GroupCreditCardPayments {
			t.Errorf("expected only the credit card payments group, got %+v", groups)
		}

		system, err := l.Categories.ListCategories(ctx, CategoryFilter{IncludeSystem: true})
		testutil.AssertNoError(t, err)
		if len(system) != len(models.SystemCategories)+1 {
			t.Errorf("expected seeded system categories plus one payment category, got %d", len(system))
		}
	})

	t.Run("reserved_payment_prefix", func(t *testing.T) {
		l := setupLedger(t)

		for _, in := range []CategoryInput{
			{Name: "Visa", ID: "payment_visa"},
			{Name: "Payment Visa"},
		} {
			_, err := l.Categories.CreateCategory(ctx, in)
			testutil.AssertAppError(t, err, "VALIDATION_ERROR")
		}

		_, err := l.Categories.CreateCategory(ctx, CategoryInput{Name: "Payments Out"})
		testutil.AssertNoError(t, err)
	})

	t.Run("update_and_retire_group", func(t *testing.T) {
		l := setupLedger(t)
		group, err := l.Categories.CreateGroup(ctx, GroupInput{Name: "Bills", SortOrder: 2})
		testutil.AssertNoError(t, err)
		category, err := l.Categories.CreateCategory(ctx, CategoryInput{Name: "Water", GroupID: &group.ID})
		testutil.AssertNoError(t, err)

		updated, err := l.Categories.UpdateGroup(ctx, group.ID, GroupUpdate{Name: ptr("Fixed Bills"), SortOrder: ptr(0)})
		testutil.AssertNoError(t, err)
		if updated.Name != "Fixed Bills" || updated.SortOrder != 0 {
			t.Errorf("unexpected group %+v", updated)
		}

		_, err = l.Categories.UpdateGroup(ctx, group.ID, GroupUpdate{Name: ptr(" ")})
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
		_, err = l.Categories.UpdateGroup(ctx, "missing", GroupUpdate{Name: ptr("x")})
		testutil.AssertAppError(t, err, "GROUP_NOT_FOUND")

		testutil.AssertNoError(t, l.Categories.RetireGroup(ctx, group.ID))
		testutil.AssertNoError(t, l.Categories.RetireGroup(ctx, group.ID))

		groups, err := l.Categories.ListGroups(ctx)
		testutil.AssertNoError(t, err)
		if len(groups) != 0 {
			t.Errorf("expected retired group to be hidden, got %+v", groups)
		}

		kept, err := l.Categories.GetCategory(ctx, category.ID)
		testutil.AssertNoError(t, err)
		if kept.GroupID == nil || *kept.GroupID != group.ID || !kept.IsActive {
			t.Errorf("expected category to keep its group, got %+v", kept)
		}

		_, err = l.Categories.CreateCategory(ctx, CategoryInput{Name: "Gas", GroupID: &group.ID})
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")

		testutil.AssertAppError(t, l.Categories.RetireGroup(ctx, "missing"), "GROUP_NOT_FOUND")
	})

	t.Run("credit_card_group_cannot_be_retired", func(t *testing.T) {
		l := setupLedger(t)
		testutil.CreateTestCreditAccount(t, l.db)

		testutil.AssertAppError(t, l.Categories.RetireGroup(ctx, models.GroupCreditCardPayments), "SYSTEM_CATEGORY")

		groups, err := l.Categories.ListGroups(ctx)
		testutil.AssertNoError(t, err)
		if len(groups) != 1 {
			t.Errorf("expected credit card payments group to stay active, got %+v", groups)
		}
	})
}

func TestCategoryGoals(t *testing.T) {
	ctx := context.Background()
	l := setupLedger(t)

	vacation, err := l.Categories.CreateCategory(ctx, CategoryInput{
		Name: "Vacation",
		Goal: &CategoryGoal{Type: models.GoalTypeTargetDate, AmountMinor: 250000, TargetDate: day(t, "2025-07-01")},
	})
	testutil.AssertNoError(t, err)
	if vacation.GoalType == nil || *vacation.GoalType != models.GoalTypeTargetDate ||
		vacation.GoalAmountMinor == nil || *vacation.GoalAmountMinor != 250000 ||
		vacation.GoalFrequency != nil {
		t.Fatalf("unexpected goal %+v", vacation)
	}

	stored, err := l.Categories.GetCategory(ctx, vacation.ID)
	testutil.AssertNoError(t, err)
	if stored.GoalTargetDate == nil || dates.FormatDate(*stored.GoalTargetDate) != "2025-07-01" {
		t.Errorf("expected target date to round-trip, got %v", stored.GoalTargetDate)
	}

	t.Run("switch_to_recurring", func(t *testing.T) {
		updated, err := l.Categories.UpdateCategory(ctx, vacation.ID, CategoryUpdate{
			Goal: &CategoryGoal{Type: models.GoalTypeRecurring, AmountMinor: 20000, Frequency: models.GoalFrequencyMonthly},
		})
		testutil.AssertNoError(t, err)
		if updated.GoalTargetDate != nil || updated.GoalFrequency == nil || *updated.GoalFrequency != models.GoalFrequencyMonthly {
			t.Errorf("unexpected goal %+v", updated)
		}

		stored, err := l.Categories.GetCategory(ctx, vacation.ID)
		testutil.AssertNoError(t, err)
		if stored.GoalTargetDate != nil || *stored.GoalAmountMinor != 20000 {
			t.Errorf("expected stored recurring goal, got %+v", stored)
		}
	})

	t.Run("rename_keeps_goal", func(t *testing.T) {
		_, err := l.Categories.UpdateCategory(ctx, vacation.ID, CategoryUpdate{Name: ptr("Trips")})
		testutil.AssertNoError(t, err)

		stored, err := l.Categories.GetCategory(ctx, vacation.ID)
		testutil.AssertNoError(t, err)
		if stored.GoalType == nil || *stored.GoalType != models.GoalTypeRecurring {
			t.Errorf("expected goal to survive a rename, got %+v", stored)
		}
	})

	t.Run("clear", func(t *testing.T) {
		_, err := l.Categories.UpdateCategory(ctx, vacation.ID, CategoryUpdate{ClearGoal: true})
		testutil.AssertNoError(t, err)

		stored, err := l.Categories.GetCategory(ctx, vacation.ID)
		testutil.AssertNoError(t, err)
		if stored.GoalType != nil || stored.GoalAmountMinor != nil || stored.GoalFrequency != nil {
			t.Errorf("expected goal cleared, got %+v", stored)
		}
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name string
			goal CategoryGoal
		}{
			{"unknown_type", CategoryGoal{Type: "someday", AmountMinor: 1}},
			{"zero_amount", CategoryGoal{Type: models.GoalTypeRecurring, Frequency: models.GoalFrequencyYearly}},
			{"target_without_date", CategoryGoal{Type: models.GoalTypeTargetDate, AmountMinor: 1}},
			{"target_with_frequency", CategoryGoal{Type: models.GoalTypeTargetDate, AmountMinor: 1, TargetDate: day(t, "2025-06-01"), Frequency: models.GoalFrequencyMonthly}},
			{"recurring_without_frequency", CategoryGoal{Type: models.GoalTypeRecurring, AmountMinor: 1}},
			{"recurring_bad_frequency", CategoryGoal{Type: models.GoalTypeRecurring, AmountMinor: 1, Frequency: "weekly"}},
			{"recurring_with_date", CategoryGoal{Type: models.GoalTypeRecurring, AmountMinor: 1, Frequency: models.GoalFrequencyMonthly, TargetDate: day(t, "2025-06-01")}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				goal := tt.goal
				_, err := l.Categories.CreateCategory(ctx, CategoryInput{Name: "Goal " + tt.name, Goal: &goal})
				testutil.AssertAppError(t, err, "VALIDATION_ERROR")
			})
		}
	})
}
