//go:build tinygo

// Package composite provides the USB composite device descriptor: CDC (the
// configuration port) plus one HID interface carrying the keyboard, player
// color and gamepad reports.
package composite

import (
	"machine/usb"
	"machine/usb/descriptor"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/report"
)

// Items the descriptor package has no helper for.
var (
	usageHatSwitch      = []byte{0x09, 0x39}
	usageDesktopRx      = []byte{0x09, 0x33}
	physicalMax315      = []byte{0x46, 0x3B, 0x01}
	unitDegrees         = []byte{0x65, 0x14}
	unitNone            = []byte{0x65, 0x00}
	inputDataVarAbsNull = []byte{0x81, 0x42}
	usagePageVendor     = []byte{0x06, 0x00, 0xFF}
	usageVendor         = []byte{0x09, 0x01}
)

// PlayerColorSize is the length of the player color output report including
// its ID: [ID][player][R][G][B].
const PlayerColorSize = 5

// CompositeHIDReportDescriptor combines the HID reports using Report IDs.
var CompositeHIDReportDescriptor = descriptor.Append([][]byte{
	// ===================================================================
	// REPORT ID 2: KEYBOARD (9 bytes total: 1 ID + 8 data)
	// ===================================================================
	descriptor.HIDUsagePageGenericDesktop,
	descriptor.HIDUsageDesktopKeyboard,
	descriptor.HIDCollectionApplication,
	descriptor.HIDReportID(report.IDKeyboard),
	// Modifier keys (8 bits)
	descriptor.HIDUsagePageKeyboard,
	descriptor.HIDUsageMinimum(224),
	descriptor.HIDUsageMaximum(231),
	descriptor.HIDLogicalMinimum(0),
	descriptor.HIDLogicalMaximum(1),
	descriptor.HIDReportSize(1),
	descriptor.HIDReportCount(8),
	descriptor.HIDInputDataVarAbs,
	// Reserved byte
	descriptor.HIDReportCount(1),
	descriptor.HIDReportSize(8),
	descriptor.HIDInputConstVarAbs,
	// Keycodes (6 keys)
	descriptor.HIDReportCount(6),
	descriptor.HIDReportSize(8),
	descriptor.HIDLogicalMinimum(0),
	descriptor.HIDLogicalMaximum(255),
	descriptor.HIDUsagePageKeyboard,
	descriptor.HIDUsageMinimum(0),
	descriptor.HIDUsageMaximum(255),
	descriptor.HIDInputDataAryAbs,
	descriptor.HIDCollectionEnd,

	// ===================================================================
	// REPORT ID 3: PLAYER COLOR (output, 5 bytes: 1 ID + player + RGB)
	// ===================================================================
	usagePageVendor,
	usageVendor,
	descriptor.HIDCollectionApplication,
	descriptor.HIDReportID(report.IDPlayerColor),
	usageVendor,
	descriptor.HIDLogicalMinimum(0),
	descriptor.HIDLogicalMaximum(255),
	descriptor.HIDReportSize(8),
	descriptor.HIDReportCount(PlayerColorSize - 1),
	descriptor.HIDOutputDataVarAbs,
	descriptor.HIDCollectionEnd,

	// ===================================================================
	// REPORT ID 4: GAMEPAD (8 bytes total: 1 ID + 2 buttons + hat + 4 pads)
	// ===================================================================
	descriptor.HIDUsagePageGenericDesktop,
	descriptor.HIDUsageDesktopGamepad,
	descriptor.HIDCollectionApplication,
	descriptor.HIDReportID(report.IDGamepad),
	// 16 Buttons (2 bytes)
	descriptor.HIDUsagePageButton,
	descriptor.HIDUsageMinimum(1),
	descriptor.HIDUsageMaximum(16),
	descriptor.HIDLogicalMinimum(0),
	descriptor.HIDLogicalMaximum(1),
	descriptor.HIDReportSize(1),
	descriptor.HIDReportCount(16),
	descriptor.HIDInputDataVarAbs,
	// Hat (4 bits, 8 is centered) + 4 bits padding
	descriptor.HIDUsagePageGenericDesktop,
	descriptor.HIDLogicalMinimum(0),
	descriptor.HIDLogicalMaximum(7),
	physicalMax315,
	unitDegrees,
	descriptor.HIDReportSize(4),
	descriptor.HIDReportCount(1),
	usageHatSwitch,
	inputDataVarAbsNull,
	unitNone,
	descriptor.HIDReportCount(1),
	descriptor.HIDReportSize(4),
	descriptor.HIDInputConstVarAbs,
	// Pad analog values: DonL, KaL, DonR, KaR (4 bytes)
	descriptor.HIDLogicalMinimum(0),
	descriptor.HIDLogicalMaximum(255),
	descriptor.HIDUsageDesktopX,
	descriptor.HIDUsageDesktopY,
	descriptor.HIDUsageDesktopZ,
	usageDesktopRx,
	descriptor.HIDReportSize(8),
	descriptor.HIDReportCount(4),
	descriptor.HIDInputDataVarAbs,
	descriptor.HIDCollectionEnd,
})

// USBDescriptor is the complete USB descriptor for the composite device.
var USBDescriptor = descriptor.Descriptor{
	// Device descriptor: USB 2.0 Composite device
	Device: descriptor.DeviceCDC.Bytes(),

	// Configuration descriptor: All interfaces combined
	Configuration: descriptor.Append([][]byte{
		// Configuration header
		descriptor.ConfigurationCDCHID.Bytes(),
		// CDC interfaces
		descriptor.InterfaceAssociationCDC.Bytes(),
		descriptor.InterfaceCDCControl.Bytes(),
		descriptor.ClassSpecificCDCHeader.Bytes(),
		descriptor.ClassSpecificCDCACM.Bytes(),
		descriptor.ClassSpecificCDCUnion.Bytes(),
		descriptor.ClassSpecificCDCCallManagement.Bytes(),
		descriptor.EndpointEP1IN.Bytes(),
		descriptor.InterfaceCDCData.Bytes(),
		descriptor.EndpointEP2OUT.Bytes(),
		descriptor.EndpointEP3IN.Bytes(),
		// HID interface
		descriptor.InterfaceHID.Bytes(),
		// HID class descriptor, patched with the report descriptor length
		func() []byte {
			classHID := descriptor.ClassHID.Bytes()
			classHID[7] = byte(len(CompositeHIDReportDescriptor))
			classHID[8] = byte(len(CompositeHIDReportDescriptor) >> 8)
			return classHID
		}(),
		descriptor.EndpointEP4IN.Bytes(),
		descriptor.EndpointEP5OUT.Bytes(),
	}),

	// HID report descriptors by interface number
	HID: map[uint16][]byte{
		usb.HID_INTERFACE: CompositeHIDReportDescriptor,
	},
}
