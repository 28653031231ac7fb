// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package exclusion evaluates policy predicates over (decision type,
// organization type) pairs. Rules are data, not code: a rule is a pair
// of identifier sets, and a rule set matches when any rule matches.
// The same machinery backs two policies: suppressing submissions that a
// different downstream channel already delivers, and routing submission
// URLs to the worship-administration UI.
package exclusion

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lblod/kalliope-sync/internal/models"
)

// Organization classification codes.
const (
	ClassGemeente            = "http://data.vlaanderen.be/id/concept/BestuurseenheidClassificatieCode/5ab0e9b8a3b2ca7c5e000001"
	ClassProvincie           = "http://data.vlaanderen.be/id/concept/BestuurseenheidClassificatieCode/5ab0e9b8a3b2ca7c5e000000"
	ClassEredienstBestuur    = "http://data.vlaanderen.be/id/concept/BestuurseenheidClassificatieCode/66ec74fd-8cfc-4e16-99c6-350b35012e86"
	ClassCentraalBestuur     = "http://data.vlaanderen.be/id/concept/BestuurseenheidClassificatieCode/f9cac08a-13c1-49da-9bcb-f650b0604054"
	ClassRepresentatiefOrgan = "http://data.vlaanderen.be/id/concept/BestuurseenheidClassificatieCode/36372fad-0358-499c-a4e3-f412d2eae213"
)

// Rule is one independent policy predicate. A rule matches a submission
// when its decision type is in DecisionTypes and its organization type
// satisfies OrganizationTypes. An empty set is a wildcard for that
// dimension; an unknown organization type never satisfies a non-empty
// organization set.
type Rule struct {
	Name              string   `yaml:"name"`
	DecisionTypes     []string `yaml:"decision_types"`
	OrganizationTypes []string `yaml:"organization_types"`
}

// Matches evaluates the rule for one (decision type, organization type)
// pair.
func (r Rule) Matches(decisionType, organizationType string) bool {
	if len(r.DecisionTypes) > 0 && !contains(r.DecisionTypes, decisionType) {
		return false
	}
	if len(r.OrganizationTypes) > 0 {
		if organizationType == "" {
			return false
		}
		if !contains(r.OrganizationTypes, organizationType) {
			return false
		}
	}
	return true
}

// RuleSet is an ordered list of rules combined with logical OR.
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// Match returns the name of the first matching rule, if any.
func (rs *RuleSet) Match(decisionType, organizationType string) (string, bool) {
	for _, rule := range rs.Rules {
		if rule.Matches(decisionType, organizationType) {
			return rule.Name, true
		}
	}
	return "", false
}

// Excluded reports whether the submission matches any rule in the set.
func (rs *RuleSet) Excluded(sub models.Submission) (string, bool) {
	return rs.Match(sub.DecisionType, sub.SenderType)
}

// Load reads a rule set from a YAML file. An empty path returns the
// built-in defaults.
func Load(path string) (*RuleSet, error) {
	if path == "" {
		return Defaults(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exclusion rules %s: %w", path, err)
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse exclusion rules %s: %w", path, err)
	}
	if len(rs.Rules) == 0 {
		return nil, fmt.Errorf("exclusion rules %s define no rules", path)
	}
	return &rs, nil
}

// Defaults returns the built-in exclusion rule set: filings that the
// worship-administration database already forwards to the registry must
// not be sent a second time through this channel.
func Defaults() *RuleSet {
	return &RuleSet{Rules: worshipRules()}
}

// WorshipRouting returns the rule set deciding which submissions link to
// the worship-administration UI instead of the default supervision UI.
func WorshipRouting() *RuleSet {
	rules := worshipRules()
	// Shared decision type routed to the worship UI regardless of the
	// submitting organization.
	rules = append(rules, Rule{
		Name: "gedeeld-besluittype",
		DecisionTypes: []string{
			"https://data.vlaanderen.be/id/concept/BesluitType/95c671c2-3ab7-43e2-a90d-9b096c84bfe7",
		},
	})
	return &RuleSet{Rules: rules}
}

// worshipRules is the (decision type × organization type) table from the
// read-access policy of the worship-administration database.
func worshipRules() []Rule {
	return []Rule{
		{
			Name: "gemeente-provincie",
			DecisionTypes: []string{
				"https://data.vlaanderen.be/id/concept/BesluitDocumentType/4f938e44-8bce-4d3a-b5a7-b84754fe981a",
				"https://data.vlaanderen.be/id/concept/BesluitType/79414af4-4f57-4ca3-aaa4-f8f1e015e71c",
				"https://data.vlaanderen.be/id/concept/BesluitType/b25faa84-3ab5-47ae-98c0-1b389c77b827",
			},
			OrganizationTypes: []string{ClassGemeente, ClassProvincie},
		},
		{
			Name: "eredienstbestuur",
			DecisionTypes: []string{
				"https://data.vlaanderen.be/id/concept/BesluitDocumentType/a970c99d-c06c-4942-9815-153bf3e87df2",
				"https://data.vlaanderen.be/id/concept/BesluitType/54b61cbd-349f-41c4-9c8a-7e8e67d08347",
				"https://data.vlaanderen.be/id/concept/BesluitType/e44c535d-4339-4d15-bdbf-d4be6046de2c",
			},
			OrganizationTypes: []string{ClassEredienstBestuur},
		},
		{
			Name: "centraal-bestuur",
			DecisionTypes: []string{
				"https://data.vlaanderen.be/id/concept/BesluitDocumentType/672bf096-dccd-40af-ab60-bd7de15cc461",
			},
			OrganizationTypes: []string{ClassCentraalBestuur},
		},
		{
			Name: "representatief-orgaan",
			DecisionTypes: []string{
				"https://data.vlaanderen.be/id/concept/BesluitDocumentType/651525f8-8650-4ce8-8eea-f19b94d50b73",
				"https://data.vlaanderen.be/id/concept/BesluitDocumentType/d611364b-007b-49a7-b2bf-b8f4e5568777",
				"https://data.vlaanderen.be/id/concept/BesluitDocumentType/6d1a3aea-6773-4e10-924d-38be596c5e2e",
				"https://data.vlaanderen.be/id/concept/BesluitDocumentType/14793940-5b9c-4172-b108-c73665ad9d6a",
				"https://data.vlaanderen.be/id/concept/BesluitDocumentType/95a6c5a1-05af-4d48-b2ef-5ebb1e58783b",
			},
			OrganizationTypes: []string{ClassRepresentatiefOrgan},
		},
		{
			Name: "eredienst-of-centraal",
			DecisionTypes: []string{
				"https://data.vlaanderen.be/id/concept/BesluitType/41a09f6c-7964-4777-8375-437ef61ed946",
			},
			OrganizationTypes: []string{ClassEredienstBestuur, ClassCentraalBestuur},
		},
	}
}

func contains(set []string, value string) bool {
	for _, v := range set {
		if v == value {
			return true
		}
	}
	return false
}
