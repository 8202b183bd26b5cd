package modules

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/williamzujkowski/obmc-manager/internal/redfish"
	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

// Host power states accepted by PowerState.
const (
	PowerOnline    = "Online"
	PowerOffline   = "Offline"
	PowerRestarted = "Restarted"
)

// PowerParams selects the desired host power state.
type PowerParams struct {
	State string `json:"state"`
	Force bool   `json:"force,omitempty"`
}

func (p PowerParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.State, validation.Required, validation.In(PowerOnline, PowerOffline, PowerRestarted)),
	)
}

// PowerState turns the host on or off, or restarts it. A restart is always a change.
func (r *Runner) PowerState(p PowerParams) (Result, error) {
	return r.run("power_state", func() (Result, error) {
		if err := invalid(p.Validate()); err != nil {
			return Result{}, err
		}
		system, err := r.client.System()
		if err != nil {
			return Result{}, err
		}
		current, err := system.PowerState()
		if err != nil {
			return Result{}, err
		}

		switch p.State {
		case PowerOnline:
			if current == redfish.PowerStateOn {
				return r.apply(msgUnchanged)
			}
			return r.apply(msgChanged, pick(p.Force, system.PowerOnForce, system.PowerOnGraceful))
		case PowerOffline:
			if current == redfish.PowerStateOff {
				return r.apply(msgUnchanged)
			}
			return r.apply(msgChanged, pick(p.Force, system.PowerOffForce, system.PowerOffGraceful))
		default:
			return r.apply(msgChanged, pick(p.Force, system.PowerResetForce, system.PowerResetGraceful))
		}
	})
}

func pick(force bool, forced, graceful change) change {
	if force {
		return forced
	}
	return graceful
}

// Boot source override values.
const (
	BootDisabled   = "Disabled"
	BootOnce       = "Once"
	BootContinuous = "Continuous"
)

// BootParams sets the one-time or persistent boot override. Mode and Target
// are required unless the override is Disabled, in which case they must be
// empty.
type BootParams struct {
	Enabled string `json:"override_enabled"`
	Mode    string `json:"override_mode,omitempty"`
	Target  string `json:"override_target,omitempty"`
}

func (p BootParams) Validate() error {
	disabled := p.Enabled == BootDisabled
	return validation.ValidateStruct(&p,
		validation.Field(&p.Enabled, validation.Required, validation.In(BootDisabled, BootOnce, BootContinuous)),
		validation.Field(&p.Mode,
			validation.When(disabled, validation.Empty.Error("must be empty when override is Disabled")).Else(validation.Required),
			validation.In("Legacy", "UEFI")),
		validation.Field(&p.Target,
			validation.When(disabled, validation.Empty.Error("must be empty when override is Disabled")).Else(validation.Required),
			validation.In("Pxe", "Hdd", "Cd", "Diags", "BiosSetup", "Usb")),
	)
}

// BootSettings configures the boot source override.
func (r *Runner) BootSettings(p BootParams) (Result, error) {
	return r.run("boot_settings", func() (Result, error) {
		if err := invalid(p.Validate()); err != nil {
			return Result{}, err
		}
		system, err := r.client.System()
		if err != nil {
			return Result{}, err
		}
		current, err := system.BootSourceOverride()
		if err != nil {
			return Result{}, err
		}

		want := redfish.BootOverride{Enabled: p.Enabled, Mode: p.Mode, Target: p.Target}
		if want.Enabled == current.Enabled &&
			(want.Mode == "" || want.Mode == current.Mode) &&
			(want.Target == "" || want.Target == current.Target) {
			return r.apply(msgUnchanged)
		}
		return r.apply(msgChanged, func() error { return system.SetBootSourceOverride(want) })
	})
}

// BiosResetToDefaults schedules a reset of the host firmware settings.
func (r *Runner) BiosResetToDefaults() (Result, error) {
	return r.run("bios_reset_to_defaults", func() (Result, error) {
		system, err := r.client.System()
		if err != nil {
			return Result{}, err
		}
		bios, err := system.Bios()
		if err != nil {
			return Result{}, err
		}
		return r.apply(msgChanged, bios.ResetToDefaults)
	})
}

const defaultMediaSlot = "USB1"

// VirtualMediaParams attaches or detaches a remote image. Zero values take
// the defaults of redfish.DefaultInsertMediaOptions; Slot defaults to USB1.
type VirtualMediaParams struct {
	Slot           string `json:"slot,omitempty"`
	Image          string `json:"image_path,omitempty"`
	State          State  `json:"state,omitempty"`
	RebootHost     bool   `json:"reboot_host,omitempty"`
	MediaType      string `json:"media_type,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	TransferMethod string `json:"transfer_method,omitempty"`
	WriteProtected *bool  `json:"write_protected,omitempty"`
	Inserted       *bool  `json:"inserted,omitempty"`
}

func (p VirtualMediaParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Image, validation.When(!p.State.absent(), validation.Required)),
		validation.Field(&p.State, validation.In(StatePresent, StateAbsent)),
		validation.Field(&p.MediaType, validation.In("USBStick", "HDD", "CD")),
	)
}

func (p VirtualMediaParams) options() redfish.InsertMediaOptions {
	opts := redfish.DefaultInsertMediaOptions(p.Image)
	if p.MediaType != "" {
		opts.MediaType = p.MediaType
	}
	if p.TransferMethod != "" {
		opts.TransferMethod = p.TransferMethod
	}
	if p.WriteProtected != nil {
		opts.WriteProtected = *p.WriteProtected
	}
	if p.Inserted != nil {
		opts.Inserted = *p.Inserted
	}
	opts.UserName = p.Username
	opts.Password = p.Password
	return opts
}

// VirtualMedia inserts or ejects a remote image. When RebootHost is set and
// the media changed, the host is powered on, or restarted if already on.
func (r *Runner) VirtualMedia(p VirtualMediaParams) (Result, error) {
	return r.run("virtual_media", func() (Result, error) {
		return r.virtualMedia(p)
	})
}

// OSDeploy boots the host from a remote installation image.
func (r *Runner) OSDeploy(p VirtualMediaParams) (Result, error) {
	p.State = StatePresent
	p.RebootHost = true
	return r.run("os_deploy", func() (Result, error) {
		return r.virtualMedia(p)
	})
}

func (r *Runner) virtualMedia(p VirtualMediaParams) (Result, error) {
	if err := invalid(p.Validate()); err != nil {
		return Result{}, err
	}
	slot := p.Slot
	if slot == "" {
		slot = defaultMediaSlot
	}
	manager, err := r.client.Manager()
	if err != nil {
		return Result{}, err
	}
	media, err := manager.VirtualMedia(slot)
	if err != nil {
		return Result{}, err
	}
	if media == nil {
		return Result{}, typederrors.NewNotFoundError(manager.Path() + "/VirtualMedia/" + slot)
	}

	inserted, err := media.Inserted()
	if err != nil {
		return Result{}, err
	}
	image, err := media.Image()
	if err != nil {
		return Result{}, err
	}

	var changes []change
	switch {
	case p.State.absent() && inserted:
		changes = append(changes, media.Eject)
	case !p.State.absent() && (!inserted || image != p.Image):
		opts := p.options()
		changes = append(changes, func() error { return media.Insert(opts) })
	}
	if len(changes) > 0 && p.RebootHost {
		changes = append(changes, r.rebootHost)
	}
	return r.apply(msgChanged, changes...)
}

func (r *Runner) rebootHost() error {
	system, err := r.client.System()
	if err != nil {
		return err
	}
	state, err := system.PowerState()
	if err != nil {
		return err
	}
	if state == redfish.PowerStateOff {
		return system.PowerOnGraceful()
	}
	return system.PowerResetGraceful()
}
