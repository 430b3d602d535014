package services

import "alfredoptarigan/cv-screener/internal/models"

// RubricCriterion describes how one dimension is scored for a role.
type RubricCriterion struct {
	Dimension string
	Weight    float64
	High      string
	Mid       string
	Low       string
}

// Rubric is the per-role scoring guide embedded in every prompt.
type Rubric struct {
	Role     models.Role
	Criteria []RubricCriterion
}

var rubrics = map[models.Role]Rubric{
	models.RoleTeaching: {
		Role: models.RoleTeaching,
		Criteria: []RubricCriterion{
			{Dimension: "Formation", Weight: models.WeightFormation,
				High: "PhD in the discipline", Mid: "Master's degree", Low: "Diploma or postgraduate certificate"},
			{Dimension: "Experience", Weight: models.WeightExperience,
				High: "more than 5 years of teaching plus documented innovation", Mid: "3 to 5 years of teaching", Low: "less than 3 years"},
			{Dimension: "Competencies", Weight: models.WeightCompetencies,
				High: "instructional design and learning analytics", Mid: "active learning methodologies", Low: "traditional lecturing only"},
			{Dimension: "Software", Weight: models.WeightSoftware,
				High: "AI tools and authoring software", Mid: "advanced LMS use", Low: "office tools only"},
		},
	},
	models.RoleResearch: {
		Role: models.RoleResearch,
		Criteria: []RubricCriterion{
			{Dimension: "Formation", Weight: models.WeightFormation,
				High: "PhD with high research productivity", Mid: "PhD plus postdoc", Low: "PhD in progress or master's"},
			{Dimension: "Experience", Weight: models.WeightExperience,
				High: "more than 8 JCR Q1 papers and project leadership", Mid: "about 3 JCR Q1/Q2 papers", Low: "few or no indexed publications"},
			{Dimension: "Competencies", Weight: models.WeightCompetencies,
				High: "team leadership and technology transfer", Mid: "statistical analysis with SPSS or R", Low: "basic research skills"},
			{Dimension: "Software", Weight: models.WeightSoftware,
				High: "big data tooling and open science practice", Mid: "statistical software", Low: "office tools only"},
		},
	},
	models.RoleAcademicManagement: {
		Role: models.RoleAcademicManagement,
		Criteria: []RubricCriterion{
			{Dimension: "Formation", Weight: models.WeightFormation,
				High: "PhD in policy or higher education management", Mid: "master's in management", Low: "unrelated postgraduate degree"},
			{Dimension: "Experience", Weight: models.WeightExperience,
				High: "senior leadership such as dean", Mid: "programme director", Low: "no management positions"},
			{Dimension: "Competencies", Weight: models.WeightCompetencies,
				High: "educational models and institutional policy", Mid: "accreditation processes", Low: "administrative support"},
			{Dimension: "Software", Weight: models.WeightSoftware,
				High: "strategic BI and ISO quality systems", Mid: "academic ERP", Low: "office tools only"},
		},
	},
}

// RubricFor returns the rubric of a role; ok is false for unknown roles.
func RubricFor(role models.Role) (Rubric, bool) {
	r, ok := rubrics[role]
	return r, ok
}
