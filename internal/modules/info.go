package modules

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/williamzujkowski/obmc-manager/internal/redfish"
)

const rackMountChassis = "RackMount"

// SystemInfo collects BMC, chassis, processor, memory, PCIe, fan and power
// supply inventory into Data["system_info"]. Fans and power supplies come
// from the first RackMount chassis.
func (r *Runner) SystemInfo() (Result, error) {
	return r.run("system_info", func() (Result, error) {
		api := r.client.API()
		manager, err := r.client.Manager()
		if err != nil {
			return Result{}, err
		}
		chassis, err := api.ChassisCollection()
		if err != nil {
			return Result{}, err
		}
		server, ok := lo.Find(chassis, func(c *redfish.Chassis) bool {
			kind, err := c.ChassisType()
			return err == nil && kind == rackMountChassis
		})
		if !ok {
			return Result{}, fmt.Errorf("%w: no chassis with %s type", ErrPreconditionFailed, rackMountChassis)
		}

		system, err := r.client.System()
		if err != nil {
			return Result{}, err
		}
		processors, err := system.Processors()
		if err != nil {
			return Result{}, err
		}
		memory, err := system.Memory()
		if err != nil {
			return Result{}, err
		}
		devices, err := system.PCIeDevices()
		if err != nil {
			return Result{}, err
		}
		thermal, err := server.Thermal()
		if err != nil {
			return Result{}, err
		}
		fans, err := thermal.Fans()
		if err != nil {
			return Result{}, err
		}
		power, err := server.Power()
		if err != nil {
			return Result{}, err
		}
		supplies, err := power.PowerSupplies()
		if err != nil {
			return Result{}, err
		}

		info := map[string]any{
			"BMC": map[string]any{
				"Id":                    opt(manager.ID()),
				"Name":                  opt(manager.Name()),
				"FirmwareVersion":       opt(manager.FirmwareVersion()),
				"ServiceEntryPointUUID": opt(manager.ServiceEntryPointUUID()),
				"UUID":                  opt(manager.UUID()),
				"PowerState":            opt(manager.PowerState()),
				"Status":                opt(manager.Status()),
				"GraphicalConsole":      opt(manager.GraphicalConsole()),
				"SerialConsole":         opt(manager.SerialConsole()),
			},
			"Chassis": lo.Map(chassis, func(c *redfish.Chassis, _ int) map[string]any {
				return map[string]any{
					"Id":           opt(c.ID()),
					"Name":         opt(c.Name()),
					"Model":        opt(c.Model()),
					"Manufacturer": opt(c.Manufacturer()),
					"ChassisType":  opt(c.ChassisType()),
					"PowerState":   opt(c.PowerState()),
					"Status":       opt(c.Status()),
					"SerialNumber": opt(c.SerialNumber()),
					"PartNumber":   opt(c.PartNumber()),
				}
			}),
			"Processors": lo.Map(processors, func(p *redfish.Processor, _ int) map[string]any {
				return map[string]any{
					"Id":           opt(p.ID()),
					"Name":         opt(p.Name()),
					"Model":        opt(p.Model()),
					"TotalCores":   opt(p.TotalCores()),
					"TotalThreads": opt(p.TotalThreads()),
					"Status":       opt(p.Status()),
				}
			}),
			"DIMM": lo.Map(memory, func(m *redfish.Memory, _ int) map[string]any {
				return map[string]any{
					"Id":          opt(m.ID()),
					"Name":        opt(m.Name()),
					"DeviceType":  opt(m.MemoryDeviceType()),
					"CapacityMiB": opt(m.CapacityMiB()),
					"Status":      opt(m.Status()),
				}
			}),
			"PCIeDevices": lo.Map(devices, func(d *redfish.PCIeDevice, _ int) map[string]any {
				return map[string]any{
					"Id":           opt(d.ID()),
					"Name":         opt(d.Name()),
					"Model":        opt(d.Model()),
					"Manufacturer": opt(d.Manufacturer()),
					"DeviceType":   opt(d.DeviceType()),
				}
			}),
			"Fans": lo.Map(fans, func(f redfish.Fan, _ int) map[string]any {
				return map[string]any{
					"Id":           f.ID(),
					"Name":         f.Name,
					"PartNumber":   f.PartNumber,
					"Model":        f.Model,
					"Connector":    f.Oem.Connector,
					"Manufacturer": f.Manufacturer,
					"Reading":      f.Reading,
					"Status":       f.Status,
				}
			}),
			"PowerSupplies": lo.Map(supplies, func(s redfish.PowerSupply, _ int) map[string]any {
				return map[string]any{
					"Id":                 s.MemberID,
					"Name":               s.Name,
					"SerialNumber":       s.SerialNumber,
					"Model":              s.Model,
					"Manufacturer":       s.Manufacturer,
					"PowerCapacityWatts": s.PowerCapacityWatts,
					"Status":             s.Status,
				}
			}),
		}
		return Result{Msg: msgChanged, Data: map[string]any{"system_info": info}}, nil
	})
}

// FirmwareInfo reports the running BMC and host firmware in Data["firmware_info"].
// An image missing from the inventory is reported as nil.
func (r *Runner) FirmwareInfo() (Result, error) {
	return r.run("firmware_info", func() (Result, error) {
		bmcImage, err := r.client.ActiveSoftwareImage()
		if err != nil {
			return Result{}, err
		}
		biosImage, err := r.biosImage()
		if err != nil {
			return Result{}, err
		}
		svc, err := r.client.API().UpdateService()
		if err != nil {
			return Result{}, err
		}
		bmcInfo, err := inventoryInfo(svc, bmcImage)
		if err != nil {
			return Result{}, err
		}
		biosInfo, err := inventoryInfo(svc, biosImage)
		if err != nil {
			return Result{}, err
		}
		return Result{Msg: msgChanged, Data: map[string]any{
			"firmware_info": map[string]any{"BMC": bmcInfo, "BIOS": biosInfo},
		}}, nil
	})
}

// BiosInfo reports the running host firmware image in Data["bios_info"].
func (r *Runner) BiosInfo() (Result, error) {
	return r.run("bios_info", func() (Result, error) {
		image, err := r.biosImage()
		if err != nil {
			return Result{}, err
		}
		svc, err := r.client.API().UpdateService()
		if err != nil {
			return Result{}, err
		}
		info, err := inventoryInfo(svc, image)
		if err != nil {
			return Result{}, err
		}
		return Result{Msg: "BIOS information successfully read.", Data: map[string]any{"bios_info": info}}, nil
	})
}

// biosImage falls back to the OpenBMC default id when the BIOS does not link its image.
func (r *Runner) biosImage() (string, error) {
	system, err := r.client.System()
	if err != nil {
		return "", err
	}
	bios, err := system.Bios()
	if err != nil {
		return "", err
	}
	image, err := bios.ActiveSoftwareImage()
	if err != nil {
		return biosActiveImage, nil
	}
	return image, nil
}

func inventoryInfo(svc *redfish.UpdateService, id string) (map[string]any, error) {
	img, err := svc.FirmwareInventory(id)
	if err != nil || img == nil {
		return nil, err
	}
	return map[string]any{
		"Id":          opt(img.ID()),
		"Name":        opt(img.Name()),
		"Description": opt(img.Description()),
		"Updatable":   opt(img.Updateable()),
		"Version":     opt(img.Version()),
		"Status":      opt(img.Status()),
	}, nil
}
