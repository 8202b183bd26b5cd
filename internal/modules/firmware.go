package modules

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"

	"github.com/williamzujkowski/obmc-manager/internal/redfish"
)

const (
	DefaultUploadTimeout   = 1800 * time.Second
	DefaultActivateTimeout = 300 * time.Second
	DefaultPollInterval    = time.Second

	downloadTimeout = 60 * time.Second

	bmcActiveImage  = "bmc_active"
	biosActiveImage = "bios_active"

	bmcImageDescription  = "BMC image"
	hostImageDescription = "Host image"
)

var (
	errImageNotFound = errors.New("new image not found")
	errNotActive     = errors.New("image not active")
)

// FirmwareParams describes a firmware update. Image is a local file path,
// an http(s) URL downloaded by the manager, or a tftp URL fetched by the BMC.
// ValidateCerts applies to the download and defaults to true.
type FirmwareParams struct {
	Image           string        `json:"image_path"`
	ValidateCerts   *bool         `json:"validate_certs,omitempty"`
	UploadTimeout   time.Duration `json:"upload_timeout,omitempty"`
	ActivateTimeout time.Duration `json:"activate_timeout,omitempty"`
	PollInterval    time.Duration `json:"poll_interval,omitempty"`
}

func (p FirmwareParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Image, validation.Required),
		validation.Field(&p.UploadTimeout, validation.Min(time.Duration(0))),
		validation.Field(&p.ActivateTimeout, validation.Min(time.Duration(0))),
		validation.Field(&p.PollInterval, validation.Min(time.Duration(0))),
	)
}

func (p FirmwareParams) withDefaults() FirmwareParams {
	if p.UploadTimeout == 0 {
		p.UploadTimeout = DefaultUploadTimeout
	}
	if p.ActivateTimeout == 0 {
		p.ActivateTimeout = DefaultActivateTimeout
	}
	if p.PollInterval == 0 {
		p.PollInterval = DefaultPollInterval
	}
	return p
}

// FirmwareUpdate uploads a BMC or host firmware image, waits for the new
// image to appear and activate, then restarts whichever device it belongs
// to. The host must be powered off. Failures after the upload still report
// a change.
func (r *Runner) FirmwareUpdate(ctx context.Context, p FirmwareParams) (Result, error) {
	return r.run("firmware_update", func() (Result, error) {
		if err := invalid(p.Validate()); err != nil {
			return Result{}, err
		}
		p = p.withDefaults()

		system, err := r.client.System()
		if err != nil {
			return Result{}, err
		}
		state, err := system.PowerState()
		if err != nil {
			return Result{}, err
		}
		if state != redfish.PowerStateOff {
			return Result{}, fmt.Errorf("%w: host must be powered off for updating firmware, power state is %s",
				ErrPreconditionFailed, state)
		}

		upload, err := r.uploader(p)
		if err != nil {
			return Result{}, err
		}
		if r.check {
			return Result{Changed: true, Msg: msgChanged}, nil
		}

		svc, err := r.client.API().UpdateService()
		if err != nil {
			return Result{}, err
		}
		initial, err := imageIDs(svc)
		if err != nil {
			return Result{}, err
		}
		if err := upload(svc); err != nil {
			return Result{}, err
		}

		uploaded := Result{Changed: true, Msg: "Image uploaded."}
		image, err := r.waitNewImage(ctx, svc, initial, p)
		if err != nil {
			return uploaded, err
		}
		id, err := image.ID()
		if err != nil {
			return uploaded, err
		}
		log.Info().Str("image", id).Msg("new firmware image found")

		if err := r.waitActivation(ctx, id, p); err != nil {
			return uploaded, err
		}
		if err := r.rebootUpdated(image); err != nil {
			return uploaded, err
		}

		res := Result{Changed: true, Msg: msgChanged, Data: map[string]any{"image": id}}
		if version, err := image.Version(); err == nil {
			res.Data["version"] = version
		}
		return res, nil
	})
}

type uploadFunc func(svc *redfish.UpdateService) error

// uploader resolves the image source before anything is sent to the BMC.
func (r *Runner) uploader(p FirmwareParams) (uploadFunc, error) {
	if info, err := os.Stat(p.Image); err == nil {
		if !info.Mode().IsRegular() {
			return nil, invalidf("%s is not a file, path to image file is required", p.Image)
		}
		return func(svc *redfish.UpdateService) error {
			image, err := os.ReadFile(p.Image)
			if err != nil {
				return fmt.Errorf("reading image: %w", err)
			}
			return svc.UploadImage(image)
		}, nil
	}

	switch {
	case strings.HasPrefix(p.Image, "http://"), strings.HasPrefix(p.Image, "https://"):
		return func(svc *redfish.UpdateService) error {
			image, err := download(p.Image, lo.FromPtrOr(p.ValidateCerts, true))
			if err != nil {
				return err
			}
			return svc.UploadImage(image)
		}, nil
	case strings.HasPrefix(p.Image, "tftp://"):
		return func(svc *redfish.UpdateService) error {
			return svc.SimpleUpdate(p.Image)
		}, nil
	}
	return nil, invalidf("unknown image location %s, only http, https, tftp or local paths are supported", p.Image)
}

func download(url string, validateCerts bool) ([]byte, error) {
	resp, err := resty.New().
		SetTimeout(downloadTimeout).
		SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: !validateCerts, //nolint:gosec // image mirrors often use self-signed certs
		}).
		R().
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("getting image from %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("getting image from %s: %s", url, resp.Status())
	}
	return resp.Body(), nil
}

func imageIDs(svc *redfish.UpdateService) ([]string, error) {
	images, err := svc.FirmwareInventories()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(images))
	for _, img := range images {
		id, err := img.ID()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// waitNewImage polls the inventory until an image that was not there before
// the upload shows up. Active images never count as new.
func (r *Runner) waitNewImage(ctx context.Context, svc *redfish.UpdateService, initial []string, p FirmwareParams) (*redfish.SoftwareInventory, error) {
	known := mapset.NewSet(initial...)
	known.Append(bmcActiveImage, biosActiveImage)

	var found *redfish.SoftwareInventory
	backoff := retry.WithMaxDuration(p.UploadTimeout, retry.NewConstant(p.PollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		images, err := svc.FirmwareInventories()
		if err != nil {
			return err
		}
		if len(images) <= len(initial) {
			return retry.RetryableError(errImageNotFound)
		}
		img, ok := lo.Find(images, func(img *redfish.SoftwareInventory) bool {
			id, err := img.ID()
			return err == nil && !known.Contains(id)
		})
		if !ok {
			return retry.RetryableError(errImageNotFound)
		}
		found = img
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("new image was not uploaded within %s: %w", p.UploadTimeout, err)
	}
	return found, nil
}

func (r *Runner) waitActivation(ctx context.Context, id string, p FirmwareParams) error {
	backoff := retry.WithMaxDuration(p.ActivateTimeout, retry.NewConstant(p.PollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		active, err := r.client.ImageActivated(id)
		if err != nil {
			return err
		}
		if !active {
			return retry.RetryableError(errNotActive)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("image %s was not activated within %s: %w", id, p.ActivateTimeout, err)
	}
	return nil
}

// rebootUpdated restarts the BMC for a BMC image and powers the host on
// for a host image.
func (r *Runner) rebootUpdated(image *redfish.SoftwareInventory) error {
	description, err := image.Description()
	if err != nil {
		return err
	}
	switch description {
	case bmcImageDescription:
		manager, err := r.client.Manager()
		if err != nil {
			return err
		}
		return manager.ResetGraceful()
	case hostImageDescription:
		system, err := r.client.System()
		if err != nil {
			return err
		}
		return system.PowerOnGraceful()
	}
	return fmt.Errorf("%w: image description is %q, expected %q or %q, host and BMC were not restarted",
		ErrPreconditionFailed, description, bmcImageDescription, hostImageDescription)
}
