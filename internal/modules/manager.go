package modules

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// BMCRestart schedules a BMC reboot. It always reports a change.
func (r *Runner) BMCRestart(force bool) (Result, error) {
	return r.run("bmc_restart", func() (Result, error) {
		manager, err := r.client.Manager()
		if err != nil {
			return Result{}, err
		}
		return r.apply("BMC restart scheduled.", pick(force, manager.ResetForce, manager.ResetGraceful))
	})
}

// BMCResetToDefaults restores BMC factory settings. Only reset type "all" is supported.
func (r *Runner) BMCResetToDefaults(resetType string) (Result, error) {
	return r.run("bmc_reset_to_defaults", func() (Result, error) {
		if err := invalid(validation.Validate(resetType, validation.Required, validation.In("all"))); err != nil {
			return Result{}, err
		}
		manager, err := r.client.Manager()
		if err != nil {
			return Result{}, err
		}
		return r.apply(msgChanged, func() error { return manager.ResetToDefaults(resetType) })
	})
}
