package server

import (
	"net/http"
	"strings"

	mealplandomain "github.com/brikx/coach/internal/mealplan/domain"
	"github.com/gin-gonic/gin"
)

type weekQuery struct {
	WeekStart string `form:"week_start"`
}

func (s *Server) CreateRecipe(c *gin.Context) {
	var req mealplandomain.CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	recipe, err := s.mealPlanSvc.CreateRecipe(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": recipe})
}

func (s *Server) ListRecipes(c *gin.Context) {
	recipes, err := s.mealPlanSvc.ListRecipes(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recipes})
}

func (s *Server) PlanMeal(c *gin.Context) {
	var req mealplandomain.PlanMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	entry, err := s.mealPlanSvc.PlanMeal(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

func (s *Server) ListMealPlan(c *gin.Context) {
	var query weekQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	entries, err := s.mealPlanSvc.ListPlan(c.Request.Context(), strings.TrimSpace(query.WeekStart))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (s *Server) RemovePlannedMeal(c *gin.Context) {
	if err := s.mealPlanSvc.RemovePlannedMeal(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetShoppingList(c *gin.Context) {
	var query weekQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	list, err := s.mealPlanSvc.ShoppingList(c.Request.Context(), strings.TrimSpace(query.WeekStart))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (s *Server) AddManualItem(c *gin.Context) {
	var req mealplandomain.AddManualItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.mealPlanSvc.AddManualItem(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) RemoveManualItem(c *gin.Context) {
	if err := s.mealPlanSvc.RemoveManualItem(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ToggleChecked(c *gin.Context) {
	var req mealplandomain.ToggleCheckedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	checked, err := s.mealPlanSvc.ToggleChecked(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"item_key": req.ItemKey, "checked": checked}})
}
