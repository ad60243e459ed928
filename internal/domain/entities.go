package domain

import "time"

// Site is a physical rack location.
type Site struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// Host is a worker node inside a site.
type Host struct {
	ID     int64  `yaml:"id"`
	SiteID *int64 `yaml:"site_id"`
	Name   string `yaml:"name"`
}

// Project owns slices.
type Project struct {
	ID          int64   `yaml:"id"`
	ProjectUUID string  `yaml:"project_uuid"`
	ProjectName *string `yaml:"project_name"`
}

// User creates slices.
type User struct {
	ID        int64   `yaml:"id"`
	UserUUID  string  `yaml:"user_uuid"`
	UserEmail *string `yaml:"user_email"`
}

// Slice is a logical reservation made by a user within a project.
type Slice struct {
	ID         int64      `yaml:"id"`
	ProjectID  *int64     `yaml:"project_id"`
	UserID     *int64     `yaml:"user_id"`
	SliceGUID  string     `yaml:"slice_guid"`
	SliceName  string     `yaml:"slice_name"`
	State      int64      `yaml:"state"`
	LeaseStart *time.Time `yaml:"lease_start"`
	LeaseEnd   *time.Time `yaml:"lease_end"`
}

// Sliver is one concrete resource instance realizing part of a slice.
type Sliver struct {
	ID         int64      `yaml:"id"`
	ProjectID  *int64     `yaml:"project_id"`
	SliceID    *int64     `yaml:"slice_id"`
	UserID     *int64     `yaml:"user_id"`
	HostID     *int64     `yaml:"host_id"`
	SiteID     *int64     `yaml:"site_id"`
	SliverGUID string     `yaml:"sliver_guid"`
	State      int64      `yaml:"state"`
	SliverType string     `yaml:"sliver_type"`
	IPSubnet   *string    `yaml:"ip_subnet"`
	Image      *string    `yaml:"image"`
	Core       *int64     `yaml:"core"`
	RAM        *int64     `yaml:"ram"`
	Disk       *int64     `yaml:"disk"`
	Bandwidth  *int64     `yaml:"bandwidth"`
	LeaseStart *time.Time `yaml:"lease_start"`
	LeaseEnd   *time.Time `yaml:"lease_end"`
}

// Component is a physical part (GPU, NIC, NVMe) allocated within a sliver.
type Component struct {
	SliverID      int64    `yaml:"sliver_id"`
	ComponentGUID string   `yaml:"component_guid"`
	Type          string   `yaml:"type"`
	Model         string   `yaml:"model"`
	BDFs          []string `yaml:"bdfs"`
}

// Interface is a network attachment of a sliver.
type Interface struct {
	SliverID      int64   `yaml:"sliver_id"`
	InterfaceGUID string  `yaml:"interface_guid"`
	Port          string  `yaml:"port"`
	VLAN          *string `yaml:"vlan"`
	BDF           *string `yaml:"bdf"`
}

const (
	// SliceStateActive is the state code counted as an active slice.
	SliceStateActive int64 = 1
	// FailureStateThreshold is the lowest state code denoting a failure.
	FailureStateThreshold int64 = 400
)
