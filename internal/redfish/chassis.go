package redfish

var chassisFamily = newRegistry("Chassis", map[string]func(*Resource) *Chassis{
	"#Chassis.v1_14_0.Chassis": func(r *Resource) *Chassis { return &Chassis{Resource: r} },
})

// Chassis is a physical enclosure.
type Chassis struct {
	*Resource
}

func (c *Chassis) Model() (string, error)        { return c.stringField("Model") }
func (c *Chassis) Manufacturer() (string, error) { return c.stringField("Manufacturer") }
func (c *Chassis) ChassisType() (string, error)  { return c.stringField("ChassisType") }
func (c *Chassis) PowerState() (string, error)   { return c.stringField("PowerState") }
func (c *Chassis) SerialNumber() (string, error) { return c.stringField("SerialNumber") }
func (c *Chassis) PartNumber() (string, error)   { return c.stringField("PartNumber") }
func (c *Chassis) Status() (Status, error)       { return c.status() }

func (c *Chassis) Thermal() (*Thermal, error) {
	return thermals.get(c.client, c.child("Thermal"))
}

func (c *Chassis) Power() (*Power, error) {
	return powers.get(c.client, c.child("Power"))
}

var thermals = newRegistry("Thermal", map[string]func(*Resource) *Thermal{
	"#Thermal.v1_4_0.Thermal": func(r *Resource) *Thermal { return &Thermal{Resource: r} },
})

// Thermal lists cooling components.
type Thermal struct {
	*Resource
}

// Fan is one entry of Thermal.Fans.
type Fan struct {
	ODataID      string `json:"@odata.id"`
	Name         string `json:"Name"`
	Manufacturer string `json:"Manufacturer"`
	Model        string `json:"Model"`
	PartNumber   string `json:"PartNumber"`
	Reading      *int   `json:"Reading"`
	ReadingUnits string `json:"ReadingUnits"`
	Status       Status `json:"Status"`
	Oem          struct {
		Connector string `json:"Connector"`
	} `json:"Oem"`
}

// ID returns the last path segment of the fan's @odata.id.
func (f Fan) ID() string {
	return lastSegment(f.ODataID)
}

func (t *Thermal) Fans() ([]Fan, error) {
	var fans []Fan
	err := t.decodeField(&fans, "Fans")
	return fans, err
}

var powers = newRegistry("Power", map[string]func(*Resource) *Power{
	"#Power.v1_5_2.Power": func(r *Resource) *Power { return &Power{Resource: r} },
})

// Power lists power supplies.
type Power struct {
	*Resource
}

// PowerSupply is one entry of Power.PowerSupplies.
type PowerSupply struct {
	MemberID           string   `json:"MemberId"`
	Name               string   `json:"Name"`
	Manufacturer       string   `json:"Manufacturer"`
	Model              string   `json:"Model"`
	PartNumber         string   `json:"PartNumber"`
	SerialNumber       string   `json:"SerialNumber"`
	PowerCapacityWatts *float64 `json:"PowerCapacityWatts"`
	Status             Status   `json:"Status"`
}

func (p *Power) PowerSupplies() ([]PowerSupply, error) {
	var supplies []PowerSupply
	err := p.decodeField(&supplies, "PowerSupplies")
	return supplies, err
}
