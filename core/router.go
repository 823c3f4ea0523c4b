package core

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, policy *AccessPolicy, codec *TokenCodec, authService AuthService, users UserRepository, tasks TaskRepository, limiter *LoginLimiter) *gin.Engine {
	r := gin.Default()

	// Global middleware: origin/CORS -> authentication -> role authorization
	r.Use(OriginMiddleware(cfg))
	r.Use(AuthMiddleware(policy, codec, users))
	r.Use(RequireAccess(policy))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/auth/login", func(c *gin.Context) {
			var req struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "invalid json")
				return
			}

			ctx := c.Request.Context()
			if !limiter.Allow(ctx, strings.ToLower(strings.TrimSpace(req.Email))+"|"+c.ClientIP()) {
				respondError(c, http.StatusTooManyRequests, "Too many login attempts")
				return
			}

			result, err := authService.Login(ctx, req.Email, req.Password)
			if err != nil {
				// One message for every failure class; the caller must not
				// learn whether the email exists.
				respondError(c, http.StatusUnauthorized, "Invalid credentials")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"token":        result.Token,
				"role":         result.Role,
				"redirect_url": result.RedirectURL,
			})
		})

		api.POST("/auth/register", func(c *gin.Context) {
			var req struct {
				Name            string `json:"name"`
				Email           string `json:"email"`
				Password        string `json:"password"`
				ConfirmPassword string `json:"confirm_password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "invalid json")
				return
			}

			err := authService.Register(c.Request.Context(), req.Name, req.Email, req.Password, req.ConfirmPassword)
			switch {
			case err == nil:
				c.JSON(http.StatusCreated, gin.H{"message": "Registration successful"})
			case errors.Is(err, ErrEmailTaken):
				respondError(c, http.StatusConflict, "Email already in use")
			case errors.Is(err, ErrPasswordMismatch):
				respondError(c, http.StatusBadRequest, "Passwords do not match")
			default:
				respondError(c, http.StatusBadRequest, "invalid registration data")
			}
		})

		api.GET("/users/me", func(c *gin.Context) {
			p, ok := CurrentPrincipal(c)
			if !ok {
				respondError(c, http.StatusUnauthorized, "Unauthorized")
				return
			}
			u, err := users.FindByEmail(c.Request.Context(), p.Email)
			if err != nil {
				respondError(c, http.StatusUnauthorized, "Unauthorized")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"email":      u.Email,
				"name":       u.Name,
				"role":       p.Role,
				"created_at": u.CreatedAt,
			})
		})

		api.GET("/tasks", func(c *gin.Context) {
			page, perPage, err := parsePagination(c.Query("page"), c.Query("per_page"))
			if err != nil {
				respondError(c, http.StatusBadRequest, err.Error())
				return
			}
			items, total, err := tasks.List(c.Request.Context(), page, perPage)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "failed to fetch tasks")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"items":       items,
				"page":        page,
				"per_page":    perPage,
				"total_items": total,
				"total_pages": calcTotalPages(total, perPage),
			})
		})

		api.GET("/tasks/:id", func(c *gin.Context) {
			id, ok := parseID(c)
			if !ok {
				return
			}
			t, err := tasks.Get(c.Request.Context(), id)
			if err != nil {
				if errors.Is(err, ErrTaskNotFound) {
					respondError(c, http.StatusNotFound, "Task not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "failed to fetch task")
				return
			}
			c.JSON(http.StatusOK, t)
		})

		api.POST("/tasks", func(c *gin.Context) {
			var req taskRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "invalid json")
				return
			}
			if strings.TrimSpace(req.Title) == "" {
				respondError(c, http.StatusBadRequest, "title is required")
				return
			}
			created, err := tasks.Create(c.Request.Context(), req.toTask())
			if err != nil {
				respondError(c, http.StatusInternalServerError, "failed to create task")
				return
			}
			c.JSON(http.StatusCreated, created)
		})

		api.PUT("/tasks/:id", func(c *gin.Context) {
			id, ok := parseID(c)
			if !ok {
				return
			}
			var req taskRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "invalid json")
				return
			}
			updated, err := tasks.Update(c.Request.Context(), id, req.toTask())
			if err != nil {
				if errors.Is(err, ErrTaskNotFound) {
					respondError(c, http.StatusNotFound, "Task not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "failed to update task")
				return
			}
			c.JSON(http.StatusOK, updated)
		})

		api.DELETE("/tasks/:id", func(c *gin.Context) {
			id, ok := parseID(c)
			if !ok {
				return
			}
			if err := tasks.Delete(c.Request.Context(), id); err != nil {
				if errors.Is(err, ErrTaskNotFound) {
					respondError(c, http.StatusNotFound, "Task not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "failed to delete task")
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
		})

		api.POST("/tasks/:id/comments", func(c *gin.Context) {
			id, ok := parseID(c)
			if !ok {
				return
			}
			var req struct {
				Comment string `json:"comment"`
			}
			if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Comment) == "" {
				respondError(c, http.StatusBadRequest, "comment is required")
				return
			}
			if err := tasks.AddComment(c.Request.Context(), id, strings.TrimSpace(req.Comment)); err != nil {
				if errors.Is(err, ErrTaskNotFound) {
					respondError(c, http.StatusNotFound, "Task not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "failed to add comment")
				return
			}
			c.JSON(http.StatusCreated, gin.H{"message": "Comment added"})
		})

		// Role requirement for this group comes from the access policy
		// (/api/admin/** -> ADMIN).
		admin := api.Group("/admin")
		{
			admin.GET("/users", func(c *gin.Context) {
				page, perPage, err := parsePagination(c.Query("page"), c.Query("per_page"))
				if err != nil {
					respondError(c, http.StatusBadRequest, err.Error())
					return
				}
				items, total, err := users.List(c.Request.Context(), page, perPage)
				if err != nil {
					respondError(c, http.StatusInternalServerError, "failed to fetch users")
					return
				}
				c.JSON(http.StatusOK, gin.H{
					"items":       items,
					"page":        page,
					"per_page":    perPage,
					"total_items": total,
					"total_pages": calcTotalPages(total, perPage),
				})
			})

			admin.DELETE("/users/:id", func(c *gin.Context) {
				id, err := strconv.ParseInt(c.Param("id"), 10, 64)
				if err != nil || id <= 0 {
					respondError(c, http.StatusBadRequest, "invalid id")
					return
				}
				if err := users.DeleteByID(c.Request.Context(), id); err != nil {
					if errors.Is(err, ErrUserNotFound) {
						respondError(c, http.StatusNotFound, "User not found")
						return
					}
					respondError(c, http.StatusInternalServerError, "failed to delete user")
					return
				}
				c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
			})

			// Bulk cleanup: remove every non-admin account.
			admin.DELETE("/users", func(c *gin.Context) {
				n, err := users.DeleteNonAdmins(c.Request.Context())
				if err != nil {
					respondError(c, http.StatusInternalServerError, "failed to delete users")
					return
				}
				c.JSON(http.StatusOK, gin.H{"deleted": n})
			})
		}
	}

	return r
}

type taskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Deadline    *time.Time `json:"deadline"`
	Comments    []string   `json:"comments"`
}

func (r taskRequest) toTask() Task {
	return Task{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Deadline:    r.Deadline,
		Comments:    r.Comments,
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
