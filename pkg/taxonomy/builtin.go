package taxonomy

// builtinKinds returns the stage tables for the produce kinds the service
// ships with. Stage order follows the ripening timeline of each kind.
func builtinKinds() []KindStages {
	return []KindStages{
		{
			Kind: KindAvocado,
			Stages: []RipenessStage{
				{
					CanonicalLabel: "underripe",
					StageIndex:     1,
					DisplayLabel:   "Underripe",
					Description:    "Firm flesh, bright green skin. Needs 4-7 days on the counter.",
					ColorHint:      "#7CB342",
				},
				{
					CanonicalLabel: "breaking",
					StageIndex:     2,
					DisplayLabel:   "Breaking",
					Description:    "Skin darkening, yields slightly. Ripe in 1-2 days.",
					ColorHint:      "#558B2F",
				},
				{
					CanonicalLabel: "ripe_stage_1",
					StageIndex:     3,
					DisplayLabel:   "Ripe (Stage 1)",
					Description:    "Dark skin, yields to gentle pressure. Eat within 2 days.",
					ColorHint:      "#33691E",
				},
				{
					CanonicalLabel: "ripe_stage_2",
					StageIndex:     4,
					DisplayLabel:   "Ripe (Stage 2)",
					Description:    "Fully soft. Eat today or refrigerate.",
					ColorHint:      "#4E342E",
				},
				{
					CanonicalLabel: "overripe",
					StageIndex:     5,
					DisplayLabel:   "Overripe",
					Description:    "Sunken spots, flesh browning. Best for compost.",
					ColorHint:      "#3E2723",
				},
			},
		},
		{
			Kind: KindBanana,
			Stages: []RipenessStage{
				{
					CanonicalLabel: "unripe",
					StageIndex:     1,
					DisplayLabel:   "Unripe",
					Description:    "Green peel, starchy flesh. Ripens in 2-5 days.",
					ColorHint:      "#9CCC65",
				},
				{
					CanonicalLabel: "ripe",
					StageIndex:     2,
					DisplayLabel:   "Ripe",
					Description:    "Yellow peel, sweet and firm. Ready to eat.",
					ColorHint:      "#FDD835",
				},
				{
					CanonicalLabel: "overripe",
					StageIndex:     3,
					DisplayLabel:   "Overripe",
					Description:    "Brown-spotted peel, very soft. Ideal for baking.",
					ColorHint:      "#8D6E63",
				},
			},
		},
	}
}
