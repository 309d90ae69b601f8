// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package taxonomy classifies rater error tags into a fixed set of
// legal-domain failure categories using ordered pattern rules. No model
// calls are involved; classification is pure pattern matching over the
// tag's issue text and quoted span.
package taxonomy

import (
	"regexp"

	"github.com/AleutianAI/Veracity/services/eval"
)

// Category is a taxonomy bucket key.
type Category string

// Factual error categories.
const (
	CategoryWrongHolding            Category = "wrong_holding"
	CategoryWrongVoteCount          Category = "wrong_vote_count"
	CategoryFabricatedPrecedent     Category = "fabricated_precedent"
	CategoryMergedParties           Category = "merged_parties"
	CategoryOmittedDissent          Category = "omitted_dissent"
	CategoryOmittedConcurrence      Category = "omitted_concurrence"
	CategoryWrongLegalStandard      Category = "wrong_legal_standard"
	CategoryInventedDetail          Category = "invented_detail"
	CategoryWrongJusticeAttribution Category = "wrong_justice_attribution"
	CategoryOther                   Category = "other"
)

// Omission categories.
const (
	CategoryOmittedHolding        Category = "omitted_holding"
	CategoryOmittedVoteCount      Category = "omitted_vote_count"
	CategoryOmittedReasoning      Category = "omitted_reasoning"
	CategoryOmittedJusticeOpinion Category = "omitted_justice_opinion"
	CategoryOmittedProcedural     Category = "omitted_procedural"
	CategoryOtherOmission         Category = "other_omission"
)

// rule binds a category to the patterns that select it. Rules are
// matched in table order; the first category with any matching pattern
// is the primary classification.
type rule struct {
	category Category
	label    string
	patterns []*regexp.Regexp
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

var factualRules = []rule{
	{CategoryWrongHolding, "Wrong Holding", compile(
		`(?i)holding`,
		`(?i)outcome`,
		`(?i)decided.*wrong`,
		`(?i)reversed.*affirmed|affirmed.*reversed`,
		`(?i)who won`,
		`(?i)ruling`,
		`(?i)judgment.*incorrect`,
		`(?i)misstat.*decision`,
	)},
	{CategoryWrongVoteCount, "Wrong Vote Count", compile(
		`(?i)vote\s*(count|split|tally)`,
		`(?i)\d+[\s-]+\d+.*(?:wrong|incorrect|not|different)`,
		`(?i)(?:wrong|incorrect).*\d+[\s-]+\d+`,
		`(?i)majority.*(?:number|count)`,
	)},
	{CategoryFabricatedPrecedent, "Fabricated Precedent / Citation", compile(
		`(?i)(?:not|never)\s+(?:mentioned|cited|referenced|present|found|in)\s+(?:in\s+)?(?:the\s+)?(?:reference|source|ground\s*truth)`,
		`(?i)fabricat`,
		`(?i)invented`,
		`(?i)hallucin`,
		`(?i)does\s+not\s+(?:appear|exist|mention)`,
		`(?i)not\s+in\s+(?:the\s+)?(?:reference|source|original)`,
		`(?i)no\s+(?:mention|reference|basis)`,
		`(?i)added.*not.*(?:reference|source)`,
	)},
	{CategoryMergedParties, "Merged / Confused Parties", compile(
		`(?i)(?:petitioner|respondent|plaintiff|defendant|appellant).*(?:wrong|incorrect|confused|mixed|switched)`,
		`(?i)(?:wrong|incorrect).*(?:petitioner|respondent|plaintiff|defendant|party)`,
		`(?i)confus.*(?:parties|party|petitioner|respondent)`,
		`(?i)(?:attributed|assigns|ascribed).*(?:wrong|incorrect).*(?:party|person|justice)`,
	)},
	{CategoryOmittedDissent, "Omitted Dissent", compile(
		`(?i)dissent`,
		`(?i)dissenting\s+opinion`,
	)},
	{CategoryOmittedConcurrence, "Omitted Concurrence", compile(
		`(?i)concurr`,
		`(?i)concurring\s+opinion`,
		`(?i)concurrence`,
	)},
	{CategoryWrongLegalStandard, "Wrong Legal Standard", compile(
		`(?i)(?:legal|constitutional)\s+(?:standard|test|framework|doctrine|principle)`,
		`(?i)(?:wrong|incorrect|misappl|misstat).*(?:test|standard|clause|amendment)`,
		`(?i)(?:fourth|first|second|fifth|fourteenth)\s+amendment.*(?:wrong|incorrect)`,
	)},
	{CategoryInventedDetail, "Invented Detail", compile(
		`(?i)(?:specific|exact)\s+(?:date|detail|name|number|figure)`,
		`(?i)(?:date|detail|name).*(?:not|never).*(?:mentioned|reference|source)`,
		`(?i)(?:adds|added|introduces|introduced).*(?:specific|detail|information)`,
		`(?i)this\s+(?:specific\s+)?(?:detail|information|date|name).*not`,
	)},
	{CategoryWrongJusticeAttribution, "Wrong Justice Attribution", compile(
		`(?i)justice.*(?:wrong|incorrect|did\s+not|didn't)`,
		`(?i)(?:wrong|incorrect).*justice`,
		`(?i)(?:authored|wrote|delivered).*(?:wrong|incorrect|not)`,
		`(?i)(?:not|wrong).*(?:authored|wrote|delivered)`,
	)},
}

var omissionRules = []rule{
	{CategoryOmittedDissent, "Omitted Dissent", compile(
		`(?i)dissent`,
	)},
	{CategoryOmittedConcurrence, "Omitted Concurrence", compile(
		`(?i)concurr`,
		`(?i)concurrence`,
	)},
	{CategoryOmittedHolding, "Omitted Key Holding", compile(
		`(?i)holding`,
		`(?i)(?:main|central|key|primary)\s+(?:decision|ruling|question)`,
		`(?i)legal\s+question`,
	)},
	{CategoryOmittedVoteCount, "Omitted Vote Count", compile(
		`(?i)\d+[\s-]+\d+`,
		`(?i)vote`,
		`(?i)unanimou`,
	)},
	{CategoryOmittedReasoning, "Omitted Legal Reasoning", compile(
		`(?i)reasoning`,
		`(?i)rationale`,
		`(?i)(?:legal|constitutional)\s+(?:analysis|basis|argument|framework)`,
		`(?i)(?:test|standard|doctrine)`,
	)},
	{CategoryOmittedJusticeOpinion, "Omitted Specific Justice's Opinion", compile(
		`(?i)justice\s+\w+`,
	)},
	{CategoryOmittedProcedural, "Omitted Procedural History", compile(
		`(?i)procedural`,
		`(?i)(?:lower|circuit|district|appellate)\s+court`,
		`(?i)appeal`,
		`(?i)certiorari`,
	)},
}

var labels = buildLabels()

func buildLabels() map[Category]string {
	out := map[Category]string{
		CategoryOther:         "Other",
		CategoryOtherOmission: "Other Omission",
	}
	for _, r := range factualRules {
		out[r.category] = r.label
	}
	for _, r := range omissionRules {
		out[r.category] = r.label
	}
	return out
}

// Label returns the display label for a category.
func Label(c Category) string {
	if l, ok := labels[c]; ok {
		return l
	}
	return string(c)
}

// rulesFor picks the rule table and fallthrough for a tag kind.
func rulesFor(kind eval.ErrorKind) ([]rule, Category) {
	if kind == eval.KindOmission {
		return omissionRules, CategoryOtherOmission
	}
	return factualRules, CategoryOther
}

// Classify returns the primary category for an error tag: the first
// rule in table order whose patterns match the tag's issue text or
// quoted span, falling through to Other / Other Omission.
func Classify(tag eval.ErrorTag) Category {
	rules, fallthru := rulesFor(tag.Kind)
	text := combined(tag)
	for _, r := range rules {
		if matchAny(r.patterns, text) {
			return r.category
		}
	}
	return fallthru
}

// ClassifyAll returns every matching category in table order, with the
// fallthrough category when nothing matches. The first element equals
// Classify's result.
func ClassifyAll(tag eval.ErrorTag) []Category {
	rules, fallthru := rulesFor(tag.Kind)
	text := combined(tag)
	var out []Category
	for _, r := range rules {
		if matchAny(r.patterns, text) {
			out = append(out, r.category)
		}
	}
	if len(out) == 0 {
		out = append(out, fallthru)
	}
	return out
}

func combined(tag eval.ErrorTag) string {
	if tag.Quote == "" {
		return tag.Issue
	}
	return tag.Issue + " " + tag.Quote
}

func matchAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
