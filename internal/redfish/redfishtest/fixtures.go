package redfishtest

import "strings"

// Model names reported by the supported platforms.
const (
	ProductionModel = "VEGMAN S220 Server"
	MockupModel     = "Mockup Server"
)

const root = "/redfish/v1"

func ref(p string) map[string]any {
	return map[string]any{"@odata.id": p}
}

func collection(p, odataType string, members ...string) map[string]any {
	links := make([]any, 0, len(members))
	for _, m := range members {
		links = append(links, ref(m))
	}
	return map[string]any{
		"@odata.id":           p,
		"@odata.type":         odataType,
		"Name":                "Collection",
		"Members":             links,
		"Members@odata.count": len(links),
	}
}

// OpenBMC returns a fixture shaped like a production OpenBMC service with
// system "system" and manager "bmc".
func OpenBMC() Fixture {
	return build("system", "bmc", ProductionModel, false)
}

// Mockup returns a fixture shaped like the DMTF Redfish mockup server.
func Mockup() Fixture {
	return build("437XR1138R2", "BMC", MockupModel, true)
}

func build(systemID, managerID, model string, mockup bool) Fixture {
	sys := root + "/Systems/" + systemID
	mgr := root + "/Managers/" + managerID
	chassis := root + "/Chassis/chassis"
	accounts := root + "/AccountService/Accounts"
	roles := root + "/AccountService/Roles"
	inventory := root + "/UpdateService/FirmwareInventory"
	bmcImage := inventory + "/bmc_active"
	if mockup {
		bmcImage = inventory + "/BMC"
	}
	// Certificate stores live at fixed OpenBMC paths on every platform.
	truststore := root + "/Managers/bmc/Truststore/Certificates"
	httpsCerts := root + "/Managers/bmc/NetworkProtocol/HTTPS/Certificates"

	mark := func(doc map[string]any) map[string]any {
		if mockup {
			doc["@odata.mockup"] = true
		}
		return doc
	}

	docs := map[string]any{
		root: map[string]any{
			"@odata.id":      root,
			"@odata.type":    "#ServiceRoot.v1_5_0.ServiceRoot",
			"Id":             "RootService",
			"RedfishVersion": "1.9.0",
		},

		root + "/Systems": collection(root+"/Systems", "#ComputerSystemCollection.ComputerSystemCollection", sys),
		sys: map[string]any{
			"@odata.id":    sys,
			"@odata.type":  "#ComputerSystem.v1_13_0.ComputerSystem",
			"Id":           systemID,
			"Name":         "System",
			"Model":        model,
			"Manufacturer": "YADRO",
			"PartNumber":   "PN-0001",
			"SerialNumber": "SN-0001",
			"PowerState":   "Off",
			"Status":       map[string]any{"State": "Enabled", "Health": "OK", "HealthRollup": "OK"},
			"Boot": map[string]any{
				"BootSourceOverrideEnabled": "Disabled",
				"BootSourceOverrideMode":    "UEFI",
				"BootSourceOverrideTarget":  "None",
			},
			"Actions": map[string]any{
				"#ComputerSystem.Reset": map[string]any{"target": sys + "/Actions/ComputerSystem.Reset"},
			},
		},
		sys + "/Bios": map[string]any{
			"@odata.id":   sys + "/Bios",
			"@odata.type": "#Bios.v1_1_0.Bios",
			"Id":          "BIOS",
			"Name":        "BIOS Configuration",
			"Attributes":  map[string]any{"BootMode": "Uefi", "ProcTurboMode": "Enabled"},
			"Links": map[string]any{
				"ActiveSoftwareImage": ref(inventory + "/bios_active"),
			},
			"Actions": map[string]any{
				"#Bios.ResetBios": map[string]any{"target": sys + "/Bios/Actions/Bios.ResetBios"},
			},
		},
		sys + "/Processors": collection(sys+"/Processors", "#ProcessorCollection.ProcessorCollection", sys+"/Processors/cpu0"),
		sys + "/Processors/cpu0": map[string]any{
			"@odata.id":    sys + "/Processors/cpu0",
			"@odata.type":  "#Processor.v1_9_0.Processor",
			"Id":           "cpu0",
			"Name":         "Processor",
			"Model":        "Intel Xeon Gold 6230",
			"TotalCores":   20,
			"TotalThreads": 40,
			"Status":       map[string]any{"State": "Enabled", "Health": "OK"},
		},
		sys + "/Memory": collection(sys+"/Memory", "#MemoryCollection.MemoryCollection", sys+"/Memory/dimm0"),
		sys + "/Memory/dimm0": map[string]any{
			"@odata.id":        sys + "/Memory/dimm0",
			"@odata.type":      "#Memory.v1_7_0.Memory",
			"Id":               "dimm0",
			"Name":             "DIMM",
			"CapacityMiB":      32768,
			"MemoryDeviceType": "DDR4",
			"Status":           map[string]any{"State": "Enabled", "Health": "OK"},
		},
		sys + "/PCIeDevices": collection(sys+"/PCIeDevices", "#PCIeDeviceCollection.PCIeDeviceCollection", sys+"/PCIeDevices/nic0"),
		sys + "/PCIeDevices/nic0": map[string]any{
			"@odata.id":    sys + "/PCIeDevices/nic0",
			"@odata.type":  "#PCIeDevice.v1_4_0.PCIeDevice",
			"Id":           "nic0",
			"Name":         "NIC",
			"Manufacturer": "Mellanox",
			"Model":        "ConnectX-5",
			"DeviceType":   "SingleFunction",
		},

		root + "/Managers": collection(root+"/Managers", "#ManagerCollection.ManagerCollection", mgr),
		mgr: map[string]any{
			"@odata.id":             mgr,
			"@odata.type":           "#Manager.v1_9_0.Manager",
			"Id":                    managerID,
			"Name":                  "OpenBmc Manager",
			"FirmwareVersion":       "2.10.0",
			"UUID":                  "3a4f1e2c-0000-0000-0000-000000000001",
			"ServiceEntryPointUUID": "3a4f1e2c-0000-0000-0000-000000000002",
			"PowerState":            "On",
			"Status":                map[string]any{"State": "Enabled", "Health": "OK"},
			"GraphicalConsole":      map[string]any{"ServiceEnabled": true, "MaxConcurrentSessions": 4},
			"SerialConsole":         map[string]any{"ServiceEnabled": true, "MaxConcurrentSessions": 1},
			"Links": map[string]any{
				"ActiveSoftwareImage": ref(bmcImage),
			},
			"Actions": map[string]any{
				"#Manager.Reset":           map[string]any{"target": mgr + "/Actions/Manager.Reset"},
				"#Manager.ResetToDefaults": map[string]any{"target": mgr + "/Actions/Manager.ResetToDefaults"},
			},
		},
		mgr + "/NetworkProtocol": map[string]any{
			"@odata.id":   mgr + "/NetworkProtocol",
			"@odata.type": "#ManagerNetworkProtocol.v1_5_0.ManagerNetworkProtocol",
			"Id":          "NetworkProtocol",
			"Name":        "Manager Network Protocol",
			"HostName":    "obmc",
			"NTP":         map[string]any{"ProtocolEnabled": false, "NTPServers": []string{}},
			"SSH":         map[string]any{"ProtocolEnabled": true, "Port": 22},
			"IPMI":        map[string]any{"ProtocolEnabled": true, "Port": 623},
		},
		mgr + "/EthernetInterfaces": collection(mgr+"/EthernetInterfaces",
			"#EthernetInterfaceCollection.EthernetInterfaceCollection", mgr+"/EthernetInterfaces/eth0"),
		mgr + "/EthernetInterfaces/eth0": mark(map[string]any{
			"@odata.id":           mgr + "/EthernetInterfaces/eth0",
			"@odata.type":         "#EthernetInterface.v1_4_1.EthernetInterface",
			"Id":                  "eth0",
			"Name":                "Manager Ethernet Interface",
			"DHCPv4":              map[string]any{"DHCPEnabled": true, "UseDNSServers": true},
			"IPv4StaticAddresses": []any{},
			"StaticNameServers":   []string{},
		}),
		mgr + "/VirtualMedia": collection(mgr+"/VirtualMedia", "#VirtualMediaCollection.VirtualMediaCollection", mgr+"/VirtualMedia/USB1"),
		mgr + "/VirtualMedia/USB1": map[string]any{
			"@odata.id":      mgr + "/VirtualMedia/USB1",
			"@odata.type":    "#VirtualMedia.v1_3_0.VirtualMedia",
			"Id":             "USB1",
			"Name":           "Virtual Removable Media",
			"Image":          "",
			"Inserted":       false,
			"WriteProtected": true,
		},
		truststore: collection(truststore,
			"#CertificateCollection.CertificateCollection"),
		httpsCerts: collection(httpsCerts, "#CertificateCollection.CertificateCollection", httpsCerts+"/1"),
		httpsCerts + "/1": map[string]any{
			"@odata.id":         httpsCerts + "/1",
			"@odata.type":       "#Certificate.v1_0_0.Certificate",
			"Id":                "1",
			"Name":              "HTTPS Certificate",
			"CertificateString": "-----BEGIN CERTIFICATE-----\nHTTPS\n-----END CERTIFICATE-----\n",
			"Issuer":            map[string]any{"CommonName": "obmc"},
			"Subject":           map[string]any{"CommonName": "obmc"},
			"KeyUsage":          []string{"ServerAuthentication"},
			"ValidNotBefore":    "2023-01-01T00:00:00Z",
			"ValidNotAfter":     "2033-01-01T00:00:00Z",
		},

		root + "/Chassis": collection(root+"/Chassis", "#ChassisCollection.ChassisCollection", chassis),
		chassis: map[string]any{
			"@odata.id":    chassis,
			"@odata.type":  "#Chassis.v1_14_0.Chassis",
			"Id":           "chassis",
			"Name":         "Chassis",
			"ChassisType":  "RackMount",
			"Model":        model,
			"Manufacturer": "YADRO",
			"PowerState":   "Off",
			"SerialNumber": "CH-0001",
			"PartNumber":   "CPN-0001",
			"Status":       map[string]any{"State": "Enabled", "Health": "OK"},
		},
		chassis + "/Thermal": map[string]any{
			"@odata.id":   chassis + "/Thermal",
			"@odata.type": "#Thermal.v1_4_0.Thermal",
			"Id":          "Thermal",
			"Name":        "Thermal",
			"Fans": []any{
				map[string]any{
					"@odata.id":    chassis + "/Thermal#/Fans/0",
					"Name":         "Fan0",
					"Reading":      5400,
					"ReadingUnits": "RPM",
					"Status":       map[string]any{"State": "Enabled", "Health": "OK"},
					"Oem":          map[string]any{"Connector": "FAN0"},
				},
			},
		},
		chassis + "/Power": map[string]any{
			"@odata.id":   chassis + "/Power",
			"@odata.type": "#Power.v1_5_2.Power",
			"Id":          "Power",
			"Name":        "Power",
			"PowerSupplies": []any{
				map[string]any{
					"MemberId":           "0",
					"Name":               "PSU0",
					"Manufacturer":       "Delta",
					"Model":              "DPS-1600",
					"PowerCapacityWatts": 1600,
					"Status":             map[string]any{"State": "Enabled", "Health": "OK"},
				},
			},
		},

		root + "/AccountService": mark(map[string]any{
			"@odata.id":   root + "/AccountService",
			"@odata.type": "#AccountService.v1_5_0.AccountService",
			"Id":          "AccountService",
			"Name":        "Account Service",
			"Accounts":    ref(accounts),
			"Roles":       ref(roles),
			"LDAP": map[string]any{
				"ServiceEnabled":   false,
				"ServiceAddresses": []string{""},
				"Authentication":   map[string]any{"AuthenticationType": "UsernameAndPassword", "Username": "", "Password": nil},
				"LDAPService": map[string]any{
					"SearchSettings": map[string]any{
						"BaseDistinguishedNames": []string{""},
						"UsernameAttribute":      "",
						"GroupsAttribute":        "",
					},
				},
				"RemoteRoleMapping": []any{},
			},
			"ActiveDirectory": map[string]any{
				"ServiceEnabled":   false,
				"ServiceAddresses": []string{""},
				"Authentication":   map[string]any{"AuthenticationType": "UsernameAndPassword", "Username": "", "Password": nil},
				"LDAPService": map[string]any{
					"SearchSettings": map[string]any{
						"BaseDistinguishedNames": []string{""},
						"UsernameAttribute":      "",
						"GroupsAttribute":        "",
					},
				},
				"RemoteRoleMapping": []any{},
			},
		}),
		accounts: collection(accounts, "#ManagerAccountCollection.ManagerAccountCollection", accounts+"/root"),
		accounts + "/root": map[string]any{
			"@odata.id":   accounts + "/root",
			"@odata.type": "#ManagerAccount.v1_4_0.ManagerAccount",
			"Id":          "root",
			"Name":        "User Account",
			"UserName":    "root",
			"Password":    nil,
			"RoleId":      "Administrator",
			"Enabled":     true,
			"Locked":      false,
			"Links":       map[string]any{"Role": ref(roles + "/Administrator")},
		},
		roles: collection(roles, "#RoleCollection.RoleCollection",
			roles+"/Administrator", roles+"/Operator", roles+"/ReadOnly"),
		roles + "/Administrator": role(roles, "Administrator", "Login", "ConfigureManager", "ConfigureUsers", "ConfigureSelf", "ConfigureComponents"),
		roles + "/Operator":      role(roles, "Operator", "Login", "ConfigureSelf", "ConfigureComponents"),
		roles + "/ReadOnly":      role(roles, "ReadOnly", "Login", "ConfigureSelf"),

		root + "/SessionService": map[string]any{
			"@odata.id":      root + "/SessionService",
			"@odata.type":    "#SessionService.v1_0_2.SessionService",
			"Id":             "SessionService",
			"Name":           "Session Service",
			"ServiceEnabled": true,
			"SessionTimeout": 3600,
			"Sessions":       ref(root + "/SessionService/Sessions"),
		},
		root + "/SessionService/Sessions": collection(root+"/SessionService/Sessions", "#SessionCollection.SessionCollection"),

		root + "/UpdateService": map[string]any{
			"@odata.id":         root + "/UpdateService",
			"@odata.type":       "#UpdateService.v1_4_0.UpdateService",
			"Id":                "UpdateService",
			"Name":              "Update Service",
			"HttpPushUri":       root + "/UpdateService",
			"FirmwareInventory": ref(inventory),
			"Actions": map[string]any{
				"#UpdateService.SimpleUpdate": map[string]any{"target": root + "/UpdateService/Actions/UpdateService.SimpleUpdate"},
			},
		},
		inventory: collection(inventory, "#SoftwareInventoryCollection.SoftwareInventoryCollection",
			bmcImage, inventory+"/bios_active"),
		bmcImage:                   SoftwareImage(bmcImage, "BMC image", "2.10.0", "Enabled"),
		inventory + "/bios_active": SoftwareImage(inventory+"/bios_active", "Host image", "1.05", "Enabled"),

		root + "/CertificateService": mark(map[string]any{
			"@odata.id":            root + "/CertificateService",
			"@odata.type":          "#CertificateService.v1_0_0.CertificateService",
			"Id":                   "CertificateService",
			"Name":                 "Certificate Service",
			"CertificateLocations": ref(root + "/CertificateService/CertificateLocations"),
			"Actions": map[string]any{
				"#CertificateService.ReplaceCertificate": map[string]any{
					"target": root + "/CertificateService/Actions/CertificateService.ReplaceCertificate",
				},
				"#CertificateService.GenerateCSR": map[string]any{
					"target": root + "/CertificateService/Actions/CertificateService.GenerateCSR",
				},
			},
		}),
		root + "/CertificateService/CertificateLocations": map[string]any{
			"@odata.id":   root + "/CertificateService/CertificateLocations",
			"@odata.type": "#CertificateLocations.v1_0_0.CertificateLocations",
			"Id":          "CertificateLocations",
			"Links": map[string]any{
				"Certificates": []any{ref(httpsCerts + "/1")},
			},
		},
		root + "/AccountService/LDAP/Certificates": collection(root+"/AccountService/LDAP/Certificates",
			"#CertificateCollection.CertificateCollection"),
	}

	certificate := Collection{Type: "#Certificate.v1_0_0.Certificate"}
	return Fixture{
		Docs: docs,
		Collections: map[string]Collection{
			accounts: {
				Type:     "#ManagerAccount.v1_4_0.ManagerAccount",
				IDField:  "UserName",
				Defaults: map[string]any{"Name": "User Account", "Locked": false},
				Hide:     []string{"Password"},
			},
			root + "/SessionService/Sessions": {
				Type:     "#Session.v1_3_0.Session",
				Defaults: map[string]any{"Name": "User Session"},
				Hide:     []string{"Password"},
			},
			truststore: certificate,
			httpsCerts: certificate,
			root + "/AccountService/LDAP/Certificates": certificate,
		},
	}
}

func role(roles, id string, privileges ...string) map[string]any {
	return map[string]any{
		"@odata.id":          roles + "/" + id,
		"@odata.type":        "#Role.v1_2_2.Role",
		"Id":                 id,
		"Name":               "User Role",
		"RoleId":             id,
		"IsPredefined":       true,
		"AssignedPrivileges": privileges,
	}
}

// SoftwareImage builds a firmware inventory document.
func SoftwareImage(path, description, version, state string) map[string]any {
	return map[string]any{
		"@odata.id":   path,
		"@odata.type": "#SoftwareInventory.v1_1_0.SoftwareInventory",
		"Id":          path[strings.LastIndex(path, "/")+1:],
		"Name":        "Software Inventory",
		"Description": description,
		"Updateable":  true,
		"Version":     version,
		"Status":      map[string]any{"State": state, "Health": "OK"},
	}
}
