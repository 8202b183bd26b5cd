package modules

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/williamzujkowski/obmc-manager/internal/redfish/redfishtest"
	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

const (
	inventoryPath    = "/redfish/v1/UpdateService/FirmwareInventory"
	activationActive = "xyz.openbmc_project.Software.Activation.Activations.Active"
)

func imageFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "obmc-phosphor-image.static.mtd.tar")
	require.NoError(t, os.WriteFile(path, []byte("firmware"), 0o600))
	return path
}

func fastFirmware(image string) FirmwareParams {
	return FirmwareParams{
		Image:           image,
		UploadTimeout:   2 * time.Second,
		ActivateTimeout: 2 * time.Second,
		PollInterval:    10 * time.Millisecond,
	}
}

// publish makes an uploaded image appear in the inventory and, on OpenBMC,
// report itself active.
func publish(s *redfishtest.Server, id, description string) {
	s.AddMember(inventoryPath, redfishtest.SoftwareImage(inventoryPath+"/"+id, description, "2.11.0", "Enabled"))
	s.Put("/xyz/openbmc_project/software/"+id, map[string]any{
		"data": map[string]any{"Activation": activationActive},
	})
}

func TestFirmwareUpdate_BMCImage(t *testing.T) {
	runner, server, m := newRunner(t, redfishtest.OpenBMC())
	var uploaded []byte
	server.OnUpload(func(s *redfishtest.Server, path string, body []byte) {
		uploaded = body
		publish(s, "abc123", "BMC image")
	})

	res, err := runner.FirmwareUpdate(context.Background(), fastFirmware(imageFile(t)))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "abc123", res.Data["image"])
	assert.Equal(t, "2.11.0", res.Data["version"])
	assert.Equal(t, "firmware", string(uploaded))
	assert.Equal(t, []string{"GracefulRestart"}, resetTypes(server, managerPath))
	assert.Empty(t, resetTypes(server, systemPath))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("firmware_update", "changed")))
}

func TestFirmwareUpdate_TFTP(t *testing.T) {
	runner, server, _ := newRunner(t, redfishtest.OpenBMC())
	var imageURI string
	server.HandleAction("UpdateService.SimpleUpdate", func(s *redfishtest.Server, _ string, body []byte) (int, any) {
		imageURI = gjson.GetBytes(body, "ImageURI").String()
		publish(s, "host42", "Host image")
		return http.StatusAccepted, nil
	})

	res, err := runner.FirmwareUpdate(context.Background(), fastFirmware("tftp://10.0.0.1/bios.bin"))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "tftp://10.0.0.1/bios.bin", imageURI)
	assert.Equal(t, []string{"On"}, resetTypes(server, systemPath))
	assert.Empty(t, resetTypes(server, managerPath))
}

func TestFirmwareUpdate_HTTP(t *testing.T) {
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("downloaded"))
	}))
	defer mirror.Close()

	runner, server, _ := newRunner(t, redfishtest.OpenBMC())
	var uploaded []byte
	server.OnUpload(func(s *redfishtest.Server, _ string, body []byte) {
		uploaded = body
		publish(s, "abc123", "BMC image")
	})

	_, err := runner.FirmwareUpdate(context.Background(), fastFirmware(mirror.URL+"/image.tar"))
	require.NoError(t, err)
	assert.Equal(t, "downloaded", string(uploaded))
}

func TestFirmwareUpdate_HTTPFailure(t *testing.T) {
	mirror := httptest.NewServer(http.NotFoundHandler())
	defer mirror.Close()

	runner, server, _ := newRunner(t, redfishtest.OpenBMC())

	res, err := runner.FirmwareUpdate(context.Background(), fastFirmware(mirror.URL+"/image.tar"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.False(t, res.Changed)
	assert.Zero(t, server.Mutations())
}

func TestFirmwareUpdate_HTTPSSelfSigned(t *testing.T) {
	mirror := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("downloaded"))
	}))
	defer mirror.Close()

	runner, server, _ := newRunner(t, redfishtest.OpenBMC())
	var uploaded []byte
	server.OnUpload(func(s *redfishtest.Server, _ string, body []byte) {
		uploaded = body
		publish(s, "abc123", "BMC image")
	})

	_, err := runner.FirmwareUpdate(context.Background(), fastFirmware(mirror.URL+"/image.tar"))
	require.Error(t, err, "mirror certificates are checked by default")
	assert.Contains(t, err.Error(), "certificate")
	assert.Zero(t, server.Mutations())

	params := fastFirmware(mirror.URL + "/image.tar")
	params.ValidateCerts = lo.ToPtr(false)
	_, err = runner.FirmwareUpdate(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "downloaded", string(uploaded))
}

func TestFirmwareUpdate_HostOn(t *testing.T) {
	runner, server, m := newRunner(t, redfishtest.OpenBMC())
	server.Set(systemPath, "On", "PowerState")

	_, err := runner.FirmwareUpdate(context.Background(), fastFirmware(imageFile(t)))
	require.ErrorIs(t, err, ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "host must be powered off")
	assert.Zero(t, server.Mutations())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("firmware_update", "failed")))
}

func TestFirmwareUpdate_BadImage(t *testing.T) {
	runner, server, _ := newRunner(t, redfishtest.OpenBMC())

	tests := []string{"", "ftp://10.0.0.1/image", t.TempDir()}
	for _, image := range tests {
		_, err := runner.FirmwareUpdate(context.Background(), fastFirmware(image))
		assert.True(t, typederrors.IsSchemaValidationError(err), "image %q", image)
	}
	assert.Zero(t, server.Mutations())
}

func TestFirmwareUpdate_UploadTimeout(t *testing.T) {
	runner, _, _ := newRunner(t, redfishtest.OpenBMC())

	p := fastFirmware(imageFile(t))
	p.UploadTimeout = 50 * time.Millisecond
	res, err := runner.FirmwareUpdate(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "was not uploaded within")
	assert.True(t, res.Changed, "the image was sent even though it never appeared")
	assert.Equal(t, "Image uploaded.", res.Msg)
}

func TestFirmwareUpdate_ActivationTimeout(t *testing.T) {
	runner, server, _ := newRunner(t, redfishtest.OpenBMC())
	server.OnUpload(func(s *redfishtest.Server, _ string, _ []byte) {
		s.AddMember(inventoryPath, redfishtest.SoftwareImage(inventoryPath+"/abc123", "BMC image", "2.11.0", "Updating"))
	})

	p := fastFirmware(imageFile(t))
	p.ActivateTimeout = 50 * time.Millisecond
	res, err := runner.FirmwareUpdate(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image abc123 was not activated")
	assert.True(t, res.Changed)
	assert.Empty(t, resetTypes(server, managerPath))
}

func TestFirmwareUpdate_UnknownDescription(t *testing.T) {
	runner, server, _ := newRunner(t, redfishtest.OpenBMC())
	server.OnUpload(func(s *redfishtest.Server, _ string, _ []byte) {
		publish(s, "abc123", "CPLD image")
	})

	res, err := runner.FirmwareUpdate(context.Background(), fastFirmware(imageFile(t)))
	require.ErrorIs(t, err, ErrPreconditionFailed)
	assert.True(t, res.Changed)
	assert.Empty(t, resetTypes(server, managerPath))
	assert.Empty(t, resetTypes(server, systemPath))
}

func TestFirmwareUpdate_CheckMode(t *testing.T) {
	runner, server, _ := newRunner(t, redfishtest.OpenBMC())

	res, err := runner.WithCheckMode(true).FirmwareUpdate(context.Background(), fastFirmware(imageFile(t)))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Zero(t, server.Mutations())
}

func TestFirmwareUpdate_Mockup(t *testing.T) {
	runner, server, _ := newRunner(t, redfishtest.Mockup())
	server.OnUpload(func(s *redfishtest.Server, _ string, _ []byte) {
		s.AddMember(inventoryPath, redfishtest.SoftwareImage(inventoryPath+"/new", "BMC image", "2.11.0", "Enabled"))
	})

	res, err := runner.FirmwareUpdate(context.Background(), fastFirmware(imageFile(t)))
	require.NoError(t, err)
	assert.Equal(t, "new", res.Data["image"])
	assert.Equal(t, []string{"GracefulRestart"}, resetTypes(server, "/redfish/v1/Managers/BMC"))
}
