package rayid

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupApp(seen *string) *fiber.App {
	app := fiber.New()
	app.Use(New())
	app.Get("/", func(c *fiber.Ctx) error {
		*seen, _ = c.Locals(LocalsKey).(string)
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestNew_Generates(t *testing.T) {
	var seen string
	app := setupApp(&seen)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	id := resp.Header.Get(Header)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, seen)
}

func TestNew_KeepsIncoming(t *testing.T) {
	var seen string
	app := setupApp(&seen)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(Header, "upstream-1")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "upstream-1", resp.Header.Get(Header))
	assert.Equal(t, "upstream-1", seen)
}
