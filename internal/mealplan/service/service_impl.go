package service

import (
	"context"
	"strings"
	"time"

	"github.com/brikx/coach/internal/clock"
	"github.com/brikx/coach/internal/mealplan/domain"
	"github.com/brikx/coach/internal/mealplan/shoppinglist"
	"github.com/brikx/coach/internal/observability/metrics"
	"github.com/brikx/coach/internal/usercontext"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dateLayout  = "2006-01-02"
	maxServings = 100
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("mealplan.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   c,
		metrics: p.Metrics,
	}
}

func (s *Service) CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest) (*domain.Recipe, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Servings <= 0 || req.Servings > maxServings {
		return nil, domain.ErrInvalidServings
	}

	now := s.clock.Now().UTC()
	recipe := &domain.Recipe{
		ID:           s.genID.Generate(),
		UserID:       userID,
		Name:         name,
		Servings:     req.Servings,
		Instructions: strings.TrimSpace(req.Instructions),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for i, ing := range req.Ingredients {
		ingName := strings.TrimSpace(ing.Name)
		if ingName == "" {
			return nil, domain.ErrInvalidName
		}
		if !ing.Quantity.IsPositive() {
			return nil, domain.ErrInvalidQuantity
		}
		recipe.Ingredients = append(recipe.Ingredients, domain.RecipeIngredient{
			ID:        s.genID.Generate(),
			RecipeID:  recipe.ID,
			Name:      ingName,
			Quantity:  ing.Quantity,
			Unit:      strings.TrimSpace(ing.Unit),
			Category:  strings.TrimSpace(ing.Category),
			SortOrder: i,
		})
	}

	if err := s.repo.InsertRecipe(ctx, s.db, recipe); err != nil {
		return nil, err
	}
	return recipe, nil
}

func (s *Service) ListRecipes(ctx context.Context) ([]domain.Recipe, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListRecipes(ctx, s.db, userID)
}

func (s *Service) PlanMeal(ctx context.Context, req domain.PlanMealRequest) (*domain.MealPlanEntry, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	recipeID, err := parseID(req.RecipeID)
	if err != nil {
		return nil, err
	}
	plannedOn, err := parseDate(req.PlannedOn)
	if err != nil {
		return nil, err
	}
	mealType := req.MealType
	if mealType == "" {
		mealType = domain.MealTypeDinner
	}
	if !mealType.Valid() {
		return nil, domain.ErrInvalidMealType
	}

	recipe, err := s.repo.FindRecipe(ctx, s.db, userID, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, domain.ErrRecipeNotFound
	}

	servings := req.Servings
	if servings == 0 {
		servings = recipe.Servings
	}
	if servings < 0 || servings > maxServings {
		return nil, domain.ErrInvalidServings
	}

	entry := &domain.MealPlanEntry{
		ID:        s.genID.Generate(),
		UserID:    userID,
		RecipeID:  recipe.ID,
		PlannedOn: plannedOn,
		MealType:  mealType,
		Servings:  servings,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.repo.InsertPlanEntry(ctx, s.db, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) RemovePlannedMeal(ctx context.Context, id string) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return err
	}
	entryID, err := parseID(id)
	if err != nil {
		return err
	}

	affected, err := s.repo.DeletePlanEntry(ctx, s.db, userID, entryID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) ListPlan(ctx context.Context, weekStart string) ([]domain.MealPlanEntry, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	week, err := s.resolveWeek(weekStart)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPlanEntries(ctx, s.db, userID, week, week.AddDate(0, 0, 7))
}

func (s *Service) AddManualItem(ctx context.Context, req domain.AddManualItemRequest) (*domain.ManualItem, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	week, err := s.resolveWeek(req.WeekStart)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	quantity := req.Quantity
	if quantity.IsZero() {
		quantity = decimal.NewFromInt(1)
	}
	if quantity.IsNegative() {
		return nil, domain.ErrInvalidQuantity
	}

	item := &domain.ManualItem{
		ID:        s.genID.Generate(),
		UserID:    userID,
		WeekStart: week,
		Name:      name,
		Quantity:  quantity,
		Unit:      strings.TrimSpace(req.Unit),
		Category:  strings.TrimSpace(req.Category),
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.repo.InsertManualItem(ctx, s.db, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) RemoveManualItem(ctx context.Context, id string) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return err
	}
	itemID, err := parseID(id)
	if err != nil {
		return err
	}

	affected, err := s.repo.DeleteManualItem(ctx, s.db, userID, itemID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ToggleChecked flips the checked state of an item key and returns the new state.
func (s *Service) ToggleChecked(ctx context.Context, req domain.ToggleCheckedRequest) (bool, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return false, err
	}
	week, err := s.resolveWeek(req.WeekStart)
	if err != nil {
		return false, err
	}
	key := strings.TrimSpace(req.ItemKey)
	if key == "" {
		return false, domain.ErrInvalidItemKey
	}

	cleared, err := s.repo.ClearChecked(ctx, s.db, userID, week, key)
	if err != nil {
		return false, err
	}
	if cleared > 0 {
		return false, nil
	}

	err = s.repo.SetChecked(ctx, s.db, &domain.CheckedItem{
		UserID:    userID,
		WeekStart: week,
		ItemKey:   key,
		CheckedAt: s.clock.Now().UTC(),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) ShoppingList(ctx context.Context, weekStart string) (*domain.ShoppingListResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	week, err := s.resolveWeek(weekStart)
	if err != nil {
		return nil, err
	}

	planned, err := s.repo.ListPlannedIngredients(ctx, s.db, userID, week, week.AddDate(0, 0, 7))
	if err != nil {
		return nil, err
	}
	manual, err := s.repo.ListManualItems(ctx, s.db, userID, week)
	if err != nil {
		return nil, err
	}
	checkedRows, err := s.repo.ListChecked(ctx, s.db, userID, week)
	if err != nil {
		return nil, err
	}

	lines := make([]shoppinglist.Line, 0, len(planned))
	for _, row := range planned {
		lines = append(lines, shoppinglist.Line{
			Name:     row.Name,
			Unit:     row.Unit,
			Category: row.Category,
			Quantity: scaleQuantity(row.Quantity, row.PlanServings, row.RecipeServings),
			Source:   row.RecipeName,
		})
	}

	manualLines := make([]shoppinglist.Line, 0, len(manual))
	for _, item := range manual {
		manualLines = append(manualLines, shoppinglist.Line{
			Name:     item.Name,
			Unit:     item.Unit,
			Category: item.Category,
			Quantity: item.Quantity,
		})
	}

	checked := make(map[string]bool, len(checkedRows))
	for _, row := range checkedRows {
		checked[row.ItemKey] = true
	}

	list := shoppinglist.Merge(shoppinglist.Aggregate(lines), manualLines, checked)
	if s.metrics != nil {
		s.metrics.RecordShoppingListBuild(ctx)
	}
	return &domain.ShoppingListResponse{WeekStart: week, List: list}, nil
}

// resolveWeek normalizes any date to its ISO Monday; empty means the current week.
func (s *Service) resolveWeek(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return clock.WeekStart(s.clock.Now()), nil
	}
	day, err := parseDate(value)
	if err != nil {
		return time.Time{}, err
	}
	return clock.WeekStart(day), nil
}

// scaleQuantity scales a recipe quantity from its base servings to the planned servings.
func scaleQuantity(quantity decimal.Decimal, planServings, recipeServings int) decimal.Decimal {
	if recipeServings <= 0 || planServings == recipeServings {
		return quantity
	}
	return quantity.
		Mul(decimal.NewFromInt(int64(planServings))).
		DivRound(decimal.NewFromInt(int64(recipeServings)), 3)
}

func parseDate(value string) (time.Time, error) {
	day, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, domain.ErrInvalidDate
	}
	return day, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func userIDFromContext(ctx context.Context) (snowflake.ID, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return 0, domain.ErrInvalidUser
	}
	return userID, nil
}
