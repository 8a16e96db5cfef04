package handlers

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/credentials"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/dto"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CredentialHandler struct {
	service *credentials.Service
}

func NewCredentialHandler(service *credentials.Service) *CredentialHandler {
	return &CredentialHandler{service: service}
}

// scope resolves the caller and the :provider path segment.
func (h *CredentialHandler) scope(c *fiber.Ctx) (uuid.UUID, models.Provider, error) {
	uid, err := userID(c)
	if err != nil {
		return uuid.Nil, "", err
	}
	p, ok := models.ParseProvider(c.Params("provider"))
	if !ok {
		return uuid.Nil, "", fiber.NewError(fiber.StatusBadRequest, "Unsupported provider: "+c.Params("provider"))
	}
	return uid, p, nil
}

func (h *CredentialHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, credentials.ErrCredentialNotFound):
		return errorJSON(c, fiber.StatusNotFound, "Credential not found")
	case errors.Is(err, credentials.ErrNotOwner):
		return errorJSON(c, fiber.StatusForbidden, "Access denied")
	case credentials.IsClientError(err):
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	return internalError(c, "Credential operation failed", err)
}

func (h *CredentialHandler) Create(c *fiber.Ctx) error {
	uid, p, err := h.scope(c)
	if err != nil {
		return err
	}

	var req dto.CredentialRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	view, err := h.service.Create(c.UserContext(), uid, p, credentials.Input{Secret: req.Secret, Config: req.Config})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

func (h *CredentialHandler) Active(c *fiber.Ctx) error {
	uid, p, err := h.scope(c)
	if err != nil {
		return err
	}

	view, err := h.service.Active(c.UserContext(), uid, p)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

// List returns every credential for the provider, newest first.
// ?active_only=true narrows it to the active one.
func (h *CredentialHandler) List(c *fiber.Ctx) error {
	uid, p, err := h.scope(c)
	if err != nil {
		return err
	}

	views, err := h.service.List(c.UserContext(), uid, p, c.QueryBool("active_only", false))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"credentials": views, "total_count": len(views)})
}

func (h *CredentialHandler) Exists(c *fiber.Ctx) error {
	uid, p, err := h.scope(c)
	if err != nil {
		return err
	}

	exists, err := h.service.Exists(c.UserContext(), uid, p)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.ExistsResponse{Provider: string(p), Exists: exists})
}

func (h *CredentialHandler) Get(c *fiber.Ctx) error {
	uid, p, err := h.scope(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "credential")
	if err != nil {
		return err
	}

	view, err := h.service.Get(c.UserContext(), uid, p, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

func (h *CredentialHandler) Update(c *fiber.Ctx) error {
	uid, p, err := h.scope(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "credential")
	if err != nil {
		return err
	}

	var req dto.UpdateCredentialRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	view, err := h.service.Update(c.UserContext(), uid, p, id, credentials.Patch{Secret: req.Secret, Config: req.Config})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

func (h *CredentialHandler) Delete(c *fiber.Ctx) error {
	uid, p, err := h.scope(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "credential")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), uid, p, id); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CredentialHandler) TestStored(c *fiber.Ctx) error {
	uid, p, err := h.scope(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "credential")
	if err != nil {
		return err
	}

	connected, err := h.service.TestStored(c.UserContext(), uid, p, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.ConnectionTestResponse{Provider: string(p), Connected: connected})
}

func (h *CredentialHandler) TestCandidate(c *fiber.Ctx) error {
	uid, p, err := h.scope(c)
	if err != nil {
		return err
	}

	var req dto.CredentialRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	connected, err := h.service.TestCandidate(c.UserContext(), uid, p, credentials.Input{Secret: req.Secret, Config: req.Config})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.ConnectionTestResponse{Provider: string(p), Connected: connected})
}
