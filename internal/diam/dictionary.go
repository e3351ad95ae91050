package diam

import (
	"fmt"
	"sync"

	"github.com/vex-telecom/dsc/models_base"
)

// Entry is one dictionary record: everything needed to interpret an
// AVP's payload and to know whether a peer may discard it unrecognized.
type Entry struct {
	Code     uint32
	VendorID uint32
	Name     string
	DataType models_base.TypeID
	Flags    AVPFlags
}

type dictKey struct {
	code     uint32
	vendorID uint32
}

// Dictionary is an immutable-after-load lookup from (code, vendor_id) to
// an Entry. Base (IETF, vendor_id 0) entries are built in; vendor entries
// are populated by AddEntry — the XML loader that feeds them from
// <diameter-dictionary> documents is an external collaborator (§1 scope)
// and isn't part of this package.
type Dictionary struct {
	mu      sync.RWMutex
	entries map[dictKey]Entry
}

// NewBaseDictionary returns a Dictionary pre-loaded with the AVPs the
// base protocol and the router's own logic (Route-Record, Result-Code,
// realm/host AVPs) depend on.
func NewBaseDictionary() *Dictionary {
	d := &Dictionary{entries: make(map[dictKey]Entry)}
	for _, e := range baseEntries {
		d.entries[dictKey{e.Code, e.VendorID}] = e
	}
	return d
}

// AddEntry installs one dictionary entry, erroring if (code, vendor_id)
// is already present — the data-model invariant from §3.
func (d *Dictionary) AddEntry(e Entry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := dictKey{e.Code, e.VendorID}
	if _, exists := d.entries[k]; exists {
		return fmt.Errorf("dictionary: duplicate entry for code=%d vendor=%d", e.Code, e.VendorID)
	}
	d.entries[k] = e
	return nil
}

// Lookup returns the entry for (code, vendor_id), if any.
func (d *Dictionary) Lookup(code, vendorID uint32) (Entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[dictKey{code, vendorID}]
	return e, ok
}

// NameOf returns the dictionary name for (code, vendor_id), or a
// synthetic "AVP-<code>" placeholder when unknown.
func (d *Dictionary) NameOf(code, vendorID uint32) string {
	if e, ok := d.Lookup(code, vendorID); ok {
		return e.Name
	}
	return fmt.Sprintf("AVP-%d", code)
}

// AVP codes used throughout the base protocol and the routing engine.
const (
	AVPSessionId       uint32 = 263
	AVPHostIPAddress   uint32 = 257
	AVPAuthAppId       uint32 = 258
	AVPAcctAppId       uint32 = 259
	AVPVendorId        uint32 = 266
	AVPFirmwareRev     uint32 = 267
	AVPResultCode      uint32 = 268
	AVPProductName     uint32 = 269
	AVPErrorMessage    uint32 = 281
	AVPRouteRecord     uint32 = 282
	AVPOriginStateId   uint32 = 278
	AVPOriginHost      uint32 = 264
	AVPSupportedVendor uint32 = 265
	AVPDestRealm       uint32 = 283
	AVPOriginRealm     uint32 = 296
	AVPDestHost        uint32 = 293
	AVPDisconnectCause uint32 = 273
	AVPTerminationCause uint32 = 295
	AVPInbandSecurity  uint32 = 299
)

var baseEntries = []Entry{
	{Code: AVPSessionId, Name: "Session-Id", DataType: models_base.UTF8StringType, Flags: AVPFlags{Mandatory: true}},
	{Code: AVPOriginHost, Name: "Origin-Host", DataType: models_base.DiameterIdentityType, Flags: AVPFlags{Mandatory: true}},
	{Code: AVPOriginRealm, Name: "Origin-Realm", DataType: models_base.DiameterIdentityType, Flags: AVPFlags{Mandatory: true}},
	{Code: AVPDestHost, Name: "Destination-Host", DataType: models_base.DiameterIdentityType, Flags: AVPFlags{Mandatory: true}},
	{Code: AVPDestRealm, Name: "Destination-Realm", DataType: models_base.DiameterIdentityType, Flags: AVPFlags{Mandatory: true}},
	{Code: AVPResultCode, Name: "Result-Code", DataType: models_base.Unsigned32Type, Flags: AVPFlags{Mandatory: true}},
	{Code: AVPHostIPAddress, Name: "Host-IP-Address", DataType: models_base.AddressType, Flags: AVPFlags{Mandatory: true}},
	{Code: AVPVendorId, Name: "Vendor-Id", DataType: models_base.Unsigned32Type, Flags: AVPFlags{Mandatory: true}},
	{Code: AVPProductName, Name: "Product-Name", DataType: models_base.UTF8StringType},
	{Code: AVPAuthAppId, Name: "Auth-Application-Id", DataType: models_base.Unsigned32Type, Flags: AVPFlags{Mandatory: true}},
	{Code: AVPAcctAppId, Name: "Acct-Application-Id", DataType: models_base.Unsigned32Type, Flags: AVPFlags{Mandatory: true}},
	{Code: AVPDisconnectCause, Name: "Disconnect-Cause", DataType: models_base.EnumeratedType, Flags: AVPFlags{Mandatory: true}},
	{Code: AVPOriginStateId, Name: "Origin-State-Id", DataType: models_base.Unsigned32Type},
	{Code: AVPErrorMessage, Name: "Error-Message", DataType: models_base.UTF8StringType},
	{Code: AVPRouteRecord, Name: "Route-Record", DataType: models_base.DiameterIdentityType, Flags: AVPFlags{Mandatory: true}},
	{Code: AVPInbandSecurity, Name: "Inband-Security-Id", DataType: models_base.Unsigned32Type},
	{Code: AVPFirmwareRev, Name: "Firmware-Revision", DataType: models_base.Unsigned32Type},
	{Code: AVPSupportedVendor, Name: "Supported-Vendor-Id", DataType: models_base.Unsigned32Type},
	{Code: AVPTerminationCause, Name: "Termination-Cause", DataType: models_base.EnumeratedType, Flags: AVPFlags{Mandatory: true}},
}
