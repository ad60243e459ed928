package memstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rpattn/testbed-analytics/internal/domain"
)

// Dataset is a complete in-memory copy of the inventory tables, typically
// loaded from a YAML fixture.
type Dataset struct {
	Sites      []domain.Site      `yaml:"sites"`
	Hosts      []domain.Host      `yaml:"hosts"`
	Projects   []domain.Project   `yaml:"projects"`
	Users      []domain.User      `yaml:"users"`
	Slices     []domain.Slice     `yaml:"slices"`
	Slivers    []domain.Sliver    `yaml:"slivers"`
	Components []domain.Component `yaml:"components"`
	Interfaces []domain.Interface `yaml:"interfaces"`
}

// LoadDataset decodes a YAML fixture. Unknown keys are rejected so typos in
// fixtures surface early.
func LoadDataset(r io.Reader) (Dataset, error) {
	var ds Dataset
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil {
		if errors.Is(err, io.EOF) {
			return Dataset{}, nil
		}
		return Dataset{}, fmt.Errorf("decode fixture: %w", err)
	}
	return ds, nil
}

// LoadFile reads a YAML fixture from disk.
func LoadFile(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read fixture %s: %w", path, err)
	}
	return LoadDataset(bytes.NewReader(data))
}

type record map[string]any

func (ds Dataset) tables() map[domain.Table][]record {
	out := map[domain.Table][]record{}
	for _, st := range ds.Sites {
		out[domain.TableSites] = append(out[domain.TableSites], record{
			"id":   st.ID,
			"name": st.Name,
		})
	}
	for _, h := range ds.Hosts {
		out[domain.TableHosts] = append(out[domain.TableHosts], record{
			"id":      h.ID,
			"site_id": nullable(h.SiteID),
			"name":    h.Name,
		})
	}
	for _, p := range ds.Projects {
		out[domain.TableProjects] = append(out[domain.TableProjects], record{
			"id":           p.ID,
			"project_uuid": p.ProjectUUID,
			"project_name": nullable(p.ProjectName),
		})
	}
	for _, u := range ds.Users {
		out[domain.TableUsers] = append(out[domain.TableUsers], record{
			"id":         u.ID,
			"user_uuid":  u.UserUUID,
			"user_email": nullable(u.UserEmail),
		})
	}
	for _, s := range ds.Slices {
		out[domain.TableSlices] = append(out[domain.TableSlices], record{
			"id":          s.ID,
			"project_id":  nullable(s.ProjectID),
			"user_id":     nullable(s.UserID),
			"slice_guid":  s.SliceGUID,
			"slice_name":  s.SliceName,
			"state":       s.State,
			"lease_start": nullableTime(s.LeaseStart),
			"lease_end":   nullableTime(s.LeaseEnd),
		})
	}
	for _, sv := range ds.Slivers {
		out[domain.TableSlivers] = append(out[domain.TableSlivers], record{
			"id":          sv.ID,
			"project_id":  nullable(sv.ProjectID),
			"slice_id":    nullable(sv.SliceID),
			"user_id":     nullable(sv.UserID),
			"host_id":     nullable(sv.HostID),
			"site_id":     nullable(sv.SiteID),
			"sliver_guid": sv.SliverGUID,
			"state":       sv.State,
			"sliver_type": sv.SliverType,
			"ip_subnet":   nullable(sv.IPSubnet),
			"image":       nullable(sv.Image),
			"core":        nullable(sv.Core),
			"ram":         nullable(sv.RAM),
			"disk":        nullable(sv.Disk),
			"bandwidth":   nullable(sv.Bandwidth),
			"lease_start": nullableTime(sv.LeaseStart),
			"lease_end":   nullableTime(sv.LeaseEnd),
		})
	}
	for _, c := range ds.Components {
		var bdfs any
		if c.BDFs != nil {
			bdfs = append([]string(nil), c.BDFs...)
		}
		out[domain.TableComponents] = append(out[domain.TableComponents], record{
			"sliver_id":      c.SliverID,
			"component_guid": c.ComponentGUID,
			"type":           c.Type,
			"model":          c.Model,
			"bdfs":           bdfs,
		})
	}
	for _, i := range ds.Interfaces {
		out[domain.TableInterfaces] = append(out[domain.TableInterfaces], record{
			"sliver_id":      i.SliverID,
			"interface_guid": i.InterfaceGUID,
			"port":           i.Port,
			"vlan":           nullable(i.VLAN),
			"bdf":            nullable(i.BDF),
		})
	}
	return out
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC()
}
