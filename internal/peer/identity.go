package peer

import "github.com/vex-telecom/dsc/models_base"

// Identity is this node's own Diameter identity, used to populate the
// CER/DWR/DPR/DWA/DPA/CEA messages the runtime sends.
type Identity struct {
	OriginHost        string
	OriginRealm       string
	ProductName       string
	VendorID          uint32
	HostIPAddresses   []models_base.Address
	AuthApplicationID []uint32
	AcctApplicationID []uint32
	FirmwareRevision  uint32
}
