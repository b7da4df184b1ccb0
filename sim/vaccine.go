package sim

// VaccinationProtocol vaccinates a share of each age cohort once a year.
// The schedule maps age to the coverage reached at that age.
type VaccinationProtocol struct {
	m        *Model
	schedule map[int]float64
}

// NewVaccinationProtocol creates the campaign for the model's vaccination schedule.
func NewVaccinationProtocol(m *Model) *VaccinationProtocol {
	return &VaccinationProtocol{m: m, schedule: m.Params.Vaccination.Schedule}
}

// Apply vaccinates living agents at a scheduled age. One draw is consumed per living
// agent, in agent order, before anyone is vaccinated. Ages without coverage draw nothing.
func (v *VaccinationProtocol) Apply() error {
	coverage, ok := v.schedule[v.m.Age]
	if !ok {
		return nil
	}
	living := eligible(len(v.m.Life.Living), func(agent int) bool { return v.m.Life.Living[agent] })
	draws := make([]float64, len(living))
	for i := range draws {
		draws[i] = v.m.rng.Float64()
	}
	for i, agent := range living {
		if coverage > draws[i] {
			if err := v.m.Vaccinate(agent); err != nil {
				return err
			}
		}
	}
	return nil
}
