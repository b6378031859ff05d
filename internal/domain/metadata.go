package domain

import "github.com/couchcryptid/fire-weather-etl/internal/grid"

// Attribute keys attached to every index.
const (
	AttrLongName             = "long_name"
	AttrStandardName         = "standard_name"
	AttrUnits                = "units"
	AttrProgram              = "program"
	AttrSummary              = "summary"
	AttrNamingAuthority      = "naming_authority"
	AttrPublisherType        = "publisher_type"
	AttrPublisherInstitution = "publisher_institution"
	AttrPublisherName        = "publisher_name"
	AttrPublisherURL         = "publisher_url"
	AttrCreatorType          = "creator_type"
	AttrCreatorInstitution   = "creator_institution"
	AttrContact              = "contact"
	AttrInstituteID          = "institute_id"
	AttrInstitution          = "institution"
	AttrAcknowledgement      = "acknowledgement"
)

const bom = "Bureau of Meteorology"

// provenance is the fixed publisher block shared by all indices.
var provenance = map[string]string{
	AttrProgram:              "Australian Climate Service (ACS)",
	AttrNamingAuthority:      bom,
	AttrPublisherType:        "group",
	AttrPublisherInstitution: bom,
	AttrPublisherName:        bom,
	AttrPublisherURL:         "http://www.bom.gov.au",
	AttrCreatorType:          "institution",
	AttrCreatorInstitution:   bom,
	AttrContact:              "Naomi Benger (naomi.benger@bom.gov.au)",
	AttrInstituteID:          "BOM",
	AttrInstitution:          bom,
	AttrAcknowledgement:      "Development of data supported with funding from the Australian Climate Service.",
}

// newAttrs builds the attribute block for one index. An empty units string
// omits the units attribute entirely.
func newAttrs(standardName, longName, units, metric string, s Scenario) (grid.Attrs, error) {
	summary, err := s.summary(metric)
	if err != nil {
		return nil, err
	}
	attrs := make(grid.Attrs, len(provenance)+4)
	for k, v := range provenance {
		attrs[k] = v
	}
	attrs[AttrStandardName] = standardName
	attrs[AttrLongName] = longName
	attrs[AttrSummary] = summary
	if units != "" {
		attrs[AttrUnits] = units
	}
	return attrs, nil
}
