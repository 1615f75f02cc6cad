package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"liveboard/internal/bootstrap"
	"liveboard/internal/model"
)

// QuestionSetHandler question set authoring and session bootstrap endpoints
type QuestionSetHandler struct {
	db       *gorm.DB
	resolver *bootstrap.Resolver
}

// NewQuestionSetHandler creates a QuestionSetHandler
func NewQuestionSetHandler(db *gorm.DB, resolver *bootstrap.Resolver) *QuestionSetHandler {
	return &QuestionSetHandler{db: db, resolver: resolver}
}

// CreateSetRequest new question set
type CreateSetRequest struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
}

// ResolveRequest password-gated set lookup
type ResolveRequest struct {
	Password string `json:"password,omitempty"`
}

// AddQuestionRequest appends a question to a set
type AddQuestionRequest struct {
	Prompt      string  `json:"prompt"`
	PromptAlt   *string `json:"prompt_alt,omitempty"`
	Options     string  `json:"options"`
	OptionsAlt  *string `json:"options_alt,omitempty"`
	Answer      string  `json:"answer"`
	Solution    *string `json:"solution,omitempty"`
	SolutionAlt *string `json:"solution_alt,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// CreateSet registers a new question set owned by the caller
func (h *QuestionSetHandler) CreateSet(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(int64)

	var req CreateSetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Code == "" || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "code and name are required"})
	}

	set := model.QuestionSet{
		Code:     req.Code,
		Name:     req.Name,
		Password: req.Password,
		OwnerID:  userID,
	}
	if err := h.db.Create(&set).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "set code already exists"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create set"})
	}

	return c.Status(fiber.StatusCreated).JSON(set)
}

// GetSet returns the set record without its questions (the question list is
// password-gated behind Resolve)
func (h *QuestionSetHandler) GetSet(c *fiber.Ctx) error {
	code := c.Params("setId")

	var set model.QuestionSet
	if err := h.db.Where("code = ?", code).First(&set).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "question set not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	return c.JSON(fiber.Map{
		"code":      set.Code,
		"name":      set.Name,
		"protected": set.Password != "",
	})
}

// ResolveSet runs the session bootstrap: password gate plus ordered question
// fetch. Failures map to user-correctable statuses; everything else is a 500.
func (h *QuestionSetHandler) ResolveSet(c *fiber.Ctx) error {
	code := c.Params("setId")

	var req ResolveRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	questions, err := h.resolver.Resolve(c.Context(), code, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, bootstrap.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "question set not found"})
		case errors.Is(err, bootstrap.ErrUnauthorized):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "wrong password"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to resolve set"})
		}
	}

	return c.JSON(fiber.Map{
		"code":      code,
		"questions": questions,
	})
}

// AddQuestion appends a question at the end of a set the caller owns
func (h *QuestionSetHandler) AddQuestion(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(int64)
	code := c.Params("setId")

	var set model.QuestionSet
	if err := h.db.Where("code = ?", code).First(&set).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "question set not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	if set.OwnerID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not the set owner"})
	}

	var req AddQuestionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Prompt == "" || req.Answer == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "prompt and answer are required"})
	}
	if req.Options == "" {
		req.Options = "[]"
	}

	var count int64
	h.db.Model(&model.Question{}).Where("set_id = ?", set.ID).Count(&count)

	question := model.Question{
		SetID:       set.ID,
		Position:    int(count),
		Prompt:      req.Prompt,
		PromptAlt:   req.PromptAlt,
		Options:     req.Options,
		OptionsAlt:  req.OptionsAlt,
		Answer:      req.Answer,
		Solution:    req.Solution,
		SolutionAlt: req.SolutionAlt,
		ImageURL:    req.ImageURL,
	}
	if err := h.db.Create(&question).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create question"})
	}

	return c.Status(fiber.StatusCreated).JSON(question)
}
