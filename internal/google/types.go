package google

// DeviceType is a Google Smart Home device type identifier.
type DeviceType string

const (
	TypeSensor     DeviceType = "action.devices.types.SENSOR"
	TypeSmokeAlarm DeviceType = "action.devices.types.SMOKE_DETECTOR"
	TypeOutlet     DeviceType = "action.devices.types.OUTLET"
	TypeLight      DeviceType = "action.devices.types.LIGHT"
	TypeLock       DeviceType = "action.devices.types.LOCK"
	TypeThermostat DeviceType = "action.devices.types.THERMOSTAT"
	TypeBlinds     DeviceType = "action.devices.types.BLINDS"
	TypeSwitch     DeviceType = "action.devices.types.SWITCH"
)

// Trait is a Google Smart Home trait identifier.
type Trait string

const (
	TraitOnOff              Trait = "action.devices.traits.OnOff"
	TraitBrightness         Trait = "action.devices.traits.Brightness"
	TraitColorSetting       Trait = "action.devices.traits.ColorSetting"
	TraitOpenClose          Trait = "action.devices.traits.OpenClose"
	TraitTemperatureSetting Trait = "action.devices.traits.TemperatureSetting"
	TraitSensorState        Trait = "action.devices.traits.SensorState"
)

// Device is one device as presented in a SYNC response.
type Device struct {
	ID              string         `json:"id"`
	Type            DeviceType     `json:"type"`
	Traits          []Trait        `json:"traits"`
	Name            DeviceName     `json:"name"`
	WillReportState bool           `json:"willReportState"`
	Attributes      map[string]any `json:"attributes,omitempty"`
	DeviceInfo      DeviceInfo     `json:"deviceInfo"`
	CustomData      map[string]any `json:"customData,omitempty"`
}

// DeviceName is the naming block of a SYNC device.
type DeviceName struct {
	DefaultNames []string `json:"defaultNames,omitempty"`
	Name         string   `json:"name"`
	Nicknames    []string `json:"nicknames,omitempty"`
}

// DeviceInfo is the hardware description block of a SYNC device.
type DeviceInfo struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	HwVersion    string `json:"hwVersion"`
	SwVersion    string `json:"swVersion"`
}

// DeviceState is the trait state of one device as reported in QUERY
// responses and Home Graph pushes.
type DeviceState map[string]any

// Command is one execution command from an EXECUTE intent, modelled as a
// closed sum.
type Command interface {
	isCommand()
}

// OnOffCommand switches a device on or off.
type OnOffCommand struct {
	On bool
}

// BrightnessAbsoluteCommand sets brightness as a 0..100 percentage.
type BrightnessAbsoluteCommand struct {
	Brightness float64
}

// ColorAbsoluteCommand sets a colour.
type ColorAbsoluteCommand struct {
	Color ColorValue
}

// OpenCloseCommand sets an open percentage.
type OpenCloseCommand struct {
	OpenPercent float64
}

// ThermostatTemperatureSetpointCommand sets the target temperature.
type ThermostatTemperatureSetpointCommand struct {
	Setpoint float64
}

// ThermostatSetModeCommand sets the thermostat mode.
type ThermostatSetModeCommand struct {
	Mode string
}

func (OnOffCommand) isCommand()                         {}
func (BrightnessAbsoluteCommand) isCommand()            {}
func (ColorAbsoluteCommand) isCommand()                 {}
func (OpenCloseCommand) isCommand()                     {}
func (ThermostatTemperatureSetpointCommand) isCommand() {}
func (ThermostatSetModeCommand) isCommand()             {}

// ColorValue is the parameter of a ColorAbsolute command, one of three
// encodings.
type ColorValue interface {
	isColorValue()
}

// SpectrumRGB is a colour packed as (r<<16)|(g<<8)|b.
type SpectrumRGB int

// SpectrumHSV is a colour in hue/saturation/value space.
type SpectrumHSV struct {
	Hue        float64
	Saturation float64
	Value      float64
}

// TemperatureK is a white-light colour temperature in Kelvin.
type TemperatureK int

func (SpectrumRGB) isColorValue()  {}
func (SpectrumHSV) isColorValue()  {}
func (TemperatureK) isColorValue() {}
