package spec

// validPlacements and validAccessLevels are closed enums; anything else is
// rejected at load time rather than surfacing as a provider error later.
var validPlacements = map[Placement]bool{
	PlacementPrivate: true,
	PlacementPublic:  true,
}

var validAccessLevels = map[AccessLevel]bool{
	AccessAdmin: true,
	AccessEdit:  true,
	AccessView:  true,
}

// Validate checks the spec for structural errors and returns an
// *InvalidSpecError naming the offending entity if any are found.
func (s *ClusterSpec) Validate() error {
	if s.Name == "" {
		return invalidf("cluster", "name is required")
	}
	if s.Account == "" {
		return invalidf(ClusterID(s.Name), "account is required")
	}
	if validateAccountID(s.Account) != nil {
		return invalidf(ClusterID(s.Name), "account must be a 12-digit id, got %q", s.Account)
	}
	if s.Region == "" {
		return invalidf(ClusterID(s.Name), "region is required")
	}

	if err := s.validateNetwork(); err != nil {
		return err
	}
	if err := s.validateNodeGroups(); err != nil {
		return err
	}
	if err := s.validateAddOns(); err != nil {
		return err
	}
	return s.validateTeams()
}

func (s *ClusterSpec) validateNetwork() error {
	switch s.Network.Mode {
	case NetworkModeExistingVPC:
		if s.Network.VPCID == "" {
			return invalidf(ClusterID(s.Name), "network mode %q requires vpc_id", NetworkModeExistingVPC)
		}
	case NetworkModeCreateNew:
		if s.Network.VPCID != "" {
			return invalidf(ClusterID(s.Name), "network mode %q must not set vpc_id", NetworkModeCreateNew)
		}
	default:
		return invalidf(ClusterID(s.Name), "unknown network mode %q", s.Network.Mode)
	}
	return nil
}

func (s *ClusterSpec) validateNodeGroups() error {
	seen := make(map[string]bool, len(s.NodeGroups))
	for i, ng := range s.NodeGroups {
		if ng.ID == "" {
			return invalidf("nodegroup", "node group %d: id is required", i)
		}
		id := NodeGroupID(ng.ID)
		if seen[ng.ID] {
			return invalidf(id, "duplicate node group id")
		}
		seen[ng.ID] = true

		if ng.InstanceType == "" {
			return invalidf(id, "instance_type is required")
		}
		if ng.MinSize < 0 {
			return invalidf(id, "min_size cannot be negative, got %d", ng.MinSize)
		}
		if ng.MinSize > ng.DesiredSize || ng.DesiredSize > ng.MaxSize {
			return invalidf(id, "size bounds must satisfy min <= desired <= max, got min=%d desired=%d max=%d",
				ng.MinSize, ng.DesiredSize, ng.MaxSize)
		}
		if !validPlacements[ng.Placement] {
			return invalidf(id, "unknown placement %q", ng.Placement)
		}
	}
	return nil
}

func (s *ClusterSpec) validateAddOns() error {
	names := make(map[string]bool, len(s.AddOns))
	for i, a := range s.AddOns {
		if a.Name == "" {
			return invalidf("addon", "add-on %d: name is required", i)
		}
		if names[a.Name] {
			return invalidf(AddOnID(a.Name), "duplicate add-on name")
		}
		names[a.Name] = true
	}

	// Dependencies may only reference add-ons declared in this spec.
	// Cycle detection happens at plan time; unsatisfiable references fail here.
	for _, a := range s.AddOns {
		for _, dep := range a.DependsOn {
			if dep == a.Name {
				return invalidf(AddOnID(a.Name), "add-on depends on itself")
			}
			if !names[dep] {
				return invalidf(AddOnID(a.Name), "depends on %q which is not declared", dep)
			}
		}
	}
	return nil
}

func (s *ClusterSpec) validateTeams() error {
	seen := make(map[string]bool, len(s.Teams))
	for i, t := range s.Teams {
		if t.Name == "" {
			return invalidf("team", "team %d: name is required", i)
		}
		id := TeamID(t.Name)
		if seen[t.Name] {
			return invalidf(id, "duplicate team name")
		}
		seen[t.Name] = true

		if len(t.Bindings) == 0 {
			return invalidf(id, "at least one binding is required")
		}
		for _, b := range t.Bindings {
			if b.Principal == "" {
				return invalidf(id, "binding principal is required")
			}
			if !validAccessLevels[b.AccessLevel] {
				return invalidf(id, "unknown access level %q for principal %s", b.AccessLevel, b.Principal)
			}
		}
	}
	return nil
}
