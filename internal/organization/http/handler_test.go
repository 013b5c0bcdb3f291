package http

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionshare/session-share/internal/pkg/storage"
)

const logoOrgID = "123e4567-e89b-12d3-a456-426614174000"

func newLogoFixture(t *testing.T) (*gin.Engine, *storage.LogoStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	logos := storage.NewLogoStore(local)

	h := NewOrganizationHandler(nil, logos)
	r := gin.New()
	r.GET("/organizations/:id/logo", h.GetLogo)
	return r, logos
}

func encodePNG(t *testing.T) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf
}

func TestGetLogoStreamsStoredImage(t *testing.T) {
	r, logos := newLogoFixture(t)

	_, err := logos.Save(context.Background(), logoOrgID, encodePNG(t))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/organizations/"+logoOrgID+"/logo", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	// The body is the stored PNG, streamed back intact.
	decoded, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 8, decoded.Bounds().Dx())
}

func TestGetLogoMissingReturns404(t *testing.T) {
	r, _ := newLogoFixture(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/organizations/"+logoOrgID+"/logo", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
