package redfish

import (
	"fmt"
)

var updateServices = newRegistry("UpdateService", map[string]func(*Resource) *UpdateService{
	"#UpdateService.v1_4_0.UpdateService": func(r *Resource) *UpdateService { return &UpdateService{Resource: r} },
})

// UpdateService uploads firmware images and lists installed ones.
type UpdateService struct {
	*Resource
}

func (u *UpdateService) FirmwareInventories() ([]*SoftwareInventory, error) {
	return softwareInventories.collection(u.client, u.child("FirmwareInventory"))
}

// FirmwareInventory returns nil when no image has the given id.
func (u *UpdateService) FirmwareInventory(id string) (*SoftwareInventory, error) {
	return softwareInventories.lookup(u.client, u.child("FirmwareInventory/"+id))
}

// UploadImage pushes a firmware image as the raw request body.
func (u *UpdateService) UploadImage(image []byte) error {
	if len(image) == 0 {
		return newInvalidValue("firmware image is empty")
	}
	if _, err := u.client.Post(u.path, image); err != nil {
		return fmt.Errorf("uploading image: %w", err)
	}
	return nil
}

// SimpleUpdate asks the BMC to fetch the image itself, e.g. over TFTP.
func (u *UpdateService) SimpleUpdate(imageURI string) error {
	if imageURI == "" {
		return newInvalidValue("image URI must not be empty")
	}
	_, err := u.action("UpdateService.SimpleUpdate", map[string]any{"ImageURI": imageURI})
	return err
}

var softwareInventories = newRegistry("SoftwareInventory", map[string]func(*Resource) *SoftwareInventory{
	"#SoftwareInventory.v1_1_0.SoftwareInventory": func(r *Resource) *SoftwareInventory {
		return &SoftwareInventory{Resource: r}
	},
})

// SoftwareInventory describes one firmware image.
type SoftwareInventory struct {
	*Resource
}

func (s *SoftwareInventory) Description() (string, error) { return s.stringField("Description") }
func (s *SoftwareInventory) Updateable() (bool, error)    { return s.boolField("Updateable") }
func (s *SoftwareInventory) Version() (string, error)     { return s.stringField("Version") }
func (s *SoftwareInventory) Status() (Status, error)      { return s.status() }
