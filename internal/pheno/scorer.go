package pheno

// Match is the phenotype and panel result for one gene.
type Match struct {
	Score     int
	Phenotype bool
	Panel     bool
}

// Scorer looks up genes in a phenotype map and a panel. It is read-only after
// construction and may be shared by concurrent analyses.
type Scorer struct {
	phenotypes PhenotypeMap
	panel      Panel
}

// NewScorer creates a scorer. Either argument may be nil.
func NewScorer(m PhenotypeMap, p Panel) *Scorer {
	return &Scorer{phenotypes: m, panel: p}
}

// Score returns the match for gene. An empty gene or a nil scorer never matches.
func (s *Scorer) Score(gene string) Match {
	if s == nil {
		return Match{}
	}
	g := NormalizeGene(gene)
	if g == "" {
		return Match{}
	}

	n := s.phenotypes[g]
	return Match{
		Score:     n,
		Phenotype: n > 0,
		Panel:     s.panel.Contains(g),
	}
}

// HasPanel reports whether a non-empty panel was supplied.
func (s *Scorer) HasPanel() bool {
	return s != nil && len(s.panel) > 0
}

// PhenotypeGenes returns the number of genes with a non-zero score.
func (s *Scorer) PhenotypeGenes() int {
	if s == nil {
		return 0
	}
	return len(s.phenotypes)
}
