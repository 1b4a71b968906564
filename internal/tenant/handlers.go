package tenant

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/okutsen/tenant-service/internal/geo"
)

var validate = validator.New()

// tenantPayload is the create/update request body.
type tenantPayload struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Unit    string `json:"unit"`
	ZipCode string `json:"zipCode" validate:"required,len=5,numeric"`
}

// RegisterRoutes wires the tenant CRUD handlers into the Fiber app. Create
// and update resolve the ZIP code through the lookup chain before persisting.
func RegisterRoutes(app *fiber.App, store *MemoryStore, lookup geo.Lookuper, clock clockwork.Clock, logger *slog.Logger) {
	v1 := app.Group("/api/v1")

	v1.Post("/tenants", func(c *fiber.Ctx) error {
		payload, err := parsePayload(c)
		if err != nil {
			return err
		}

		location, err := lookup.Lookup(c.Context(), payload.ZipCode)
		if err != nil {
			return geoError(err)
		}

		now := clock.Now().UTC()
		t := Tenant{
			ID:        uuid.NewString(),
			Name:      payload.Name,
			Email:     payload.Email,
			Unit:      payload.Unit,
			ZipCode:   payload.ZipCode,
			Location:  location,
			CreatedAt: now,
			UpdatedAt: now,
		}
		store.Create(t)

		logger.Info("tenant created", "id", t.ID, "zip", t.ZipCode)
		return c.Status(fiber.StatusCreated).JSON(t)
	})

	v1.Get("/tenants", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"tenants": store.List()})
	})

	v1.Get("/tenants/:id", func(c *fiber.Ctx) error {
		t, err := store.Get(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "tenant not found")
		}
		return c.JSON(t)
	})

	v1.Put("/tenants/:id", func(c *fiber.Ctx) error {
		t, err := store.Get(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "tenant not found")
		}

		payload, err := parsePayload(c)
		if err != nil {
			return err
		}

		location, err := lookup.Lookup(c.Context(), payload.ZipCode)
		if err != nil {
			return geoError(err)
		}

		t.Name = payload.Name
		t.Email = payload.Email
		t.Unit = payload.Unit
		t.ZipCode = payload.ZipCode
		t.Location = location
		t.UpdatedAt = clock.Now().UTC()

		if err := store.Update(t); err != nil {
			return fiber.NewError(fiber.StatusNotFound, "tenant not found")
		}
		return c.JSON(t)
	})

	v1.Delete("/tenants/:id", func(c *fiber.Ctx) error {
		if err := store.Delete(c.Params("id")); err != nil {
			return fiber.NewError(fiber.StatusNotFound, "tenant not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func parsePayload(c *fiber.Ctx) (tenantPayload, error) {
	var payload tenantPayload
	if err := c.BodyParser(&payload); err != nil {
		return payload, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(payload); err != nil {
		return payload, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return payload, nil
}

// geoError maps a classified lookup failure to an HTTP error, surfacing the
// classified message verbatim. Malformed input is the caller's fault; every
// other classification is the dependency's.
func geoError(err error) *fiber.Error {
	var ge *geo.Error
	if !errors.As(err, &ge) {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if ge.Code == geo.CodeInvalidInput {
		return fiber.NewError(fiber.StatusBadRequest, ge.Message)
	}
	return fiber.NewError(fiber.StatusBadGateway, ge.Message)
}
