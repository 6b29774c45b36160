package catalog

import "journeyrewards/internal/models"

// Badge names referenced from code and tests.
const (
	BadgeFirstTrip         = "First Trip"
	BadgeJourneyBegins     = "Journey Begins"
	BadgeFirstLike         = "First Like"
	BadgeTravelEnthusiast  = "Travel Enthusiast"
	BadgePhotoCollector    = "Photo Collector"
	BadgePopularTraveler   = "Popular Traveler"
	BadgeConversation      = "Conversation Starter"
	BadgeTravelExpert      = "Travel Expert"
	BadgeSuperPopular      = "Super Popular"
	BadgeRegionExplorer    = "Region Explorer"
	BadgeTravelMaster      = "Travel Master"
	BadgeNationwide        = "Nationwide Conqueror"
	BadgeMegaStar          = "Mega Star"
	BadgeLocalHerald       = "Local Herald"
	BadgeCityAmbassador    = "City Ambassador"
	BadgeFoodie            = "Foodie"
	BadgeBloomChaser       = "Bloom Chaser"
	BadgeLandmarkHunter    = "Landmark Hunter"
	BadgeScenicSeeker      = "Scenic Seeker"
	BadgeFaithfulVisitor   = "Faithful Visitor"
	BadgeLuckyOne          = "Lucky One"
	BadgeSpeedPoster       = "Speed Poster"
	BadgeLegendaryTraveler = "Legendary Traveler"
	BadgeCityExplorer      = "City Explorer"
)

// Default returns the production badge catalog.
func Default() *Catalog {
	return MustNew(
		// start
		BadgeDefinition{
			Name: BadgeFirstTrip, Description: "Shared your first travel photo!", Icon: "🌱",
			VisualTheme: "from-green-400 to-emerald-500", Tier: TierStart, Difficulty: 1,
			Condition: PostCountAtLeast{N: 1}, PointReward: 50,
		},
		BadgeDefinition{
			Name: BadgeJourneyBegins, Description: "Logged 3 trips", Icon: "🎒",
			VisualTheme: "from-blue-400 to-cyan-500", Tier: TierStart, Difficulty: 1,
			Condition: PostCountAtLeast{N: 3}, PointReward: 50,
		},
		BadgeDefinition{
			Name: BadgeFirstLike, Description: "Someone liked your photo!", Icon: "💖",
			VisualTheme: "from-pink-400 to-rose-500", Tier: TierStart, Difficulty: 1,
			Condition: LikesReceivedAtLeast{N: 1}, PointReward: 50,
		},

		// activity
		BadgeDefinition{
			Name: BadgeTravelEnthusiast, Description: "Logged 10 trips", Icon: "✈️",
			VisualTheme: "from-sky-400 to-blue-500", Tier: TierActivity, Difficulty: 2,
			Condition: PostCountAtLeast{N: 10}, PointReward: 100,
		},
		BadgeDefinition{
			Name: BadgePhotoCollector, Description: "Collected 25 travel photos", Icon: "📷",
			VisualTheme: "from-purple-400 to-violet-500", Tier: TierActivity, Difficulty: 2,
			Condition: PostCountAtLeast{N: 25}, PointReward: 100,
		},
		BadgeDefinition{
			Name: BadgePopularTraveler, Description: "Received 50 likes!", Icon: "⭐",
			VisualTheme: "from-yellow-400 to-orange-500", Tier: TierActivity, Difficulty: 2,
			Condition: LikesReceivedAtLeast{N: 50}, PointReward: 100,
		},
		BadgeDefinition{
			Name: BadgeConversation, Description: "Your posts drew 10 comments", Icon: "💬",
			VisualTheme: "from-lime-400 to-green-500", Tier: TierActivity, Difficulty: 2,
			Condition: CommentCountAtLeast{N: 10}, PointReward: 100,
		},

		// expert
		BadgeDefinition{
			Name: BadgeTravelExpert, Description: "50 trips logged. A true expert", Icon: "🏆",
			VisualTheme: "from-amber-400 to-yellow-600", Tier: TierExpert, Difficulty: 3,
			Condition: PostCountAtLeast{N: 50}, PointReward: 200,
		},
		BadgeDefinition{
			Name: BadgeSuperPopular, Description: "Received 100 likes!", Icon: "🌟",
			VisualTheme: "from-yellow-500 to-amber-600", Tier: TierExpert, Difficulty: 3,
			Condition: LikesReceivedAtLeast{N: 100}, PointReward: 200,
		},
		BadgeDefinition{
			Name: BadgeRegionExplorer, Description: "Visited 5 different regions", Icon: "🗺️",
			VisualTheme: "from-teal-400 to-cyan-600", Tier: TierExpert, Difficulty: 3,
			Condition: DistinctRegionCountAtLeast{N: 5}, PointReward: 200,
		},

		// master
		BadgeDefinition{
			Name: BadgeTravelMaster, Description: "100 trips logged!", Icon: "👑",
			VisualTheme: "from-purple-500 to-pink-600", Tier: TierMaster, Difficulty: 4,
			Condition: PostCountAtLeast{N: 100}, PointReward: 300,
		},
		BadgeDefinition{
			Name: BadgeNationwide, Description: "Visited 10 or more regions!", Icon: "🌍",
			VisualTheme: "from-green-500 to-teal-600", Tier: TierMaster, Difficulty: 4,
			Condition: DistinctRegionCountAtLeast{N: 10}, PointReward: 300,
		},
		BadgeDefinition{
			Name: BadgeMegaStar, Description: "Received 500 likes! Superstar!", Icon: "🌠",
			VisualTheme: "from-yellow-400 via-orange-500 to-red-600", Tier: TierMaster, Difficulty: 4,
			Condition: LikesReceivedAtLeast{N: 500}, PointReward: 300,
		},

		// region
		BadgeDefinition{
			Name: BadgeLocalHerald, Description: "30 posts in a single region", Icon: "📍",
			VisualTheme: "from-red-400 to-pink-500", Tier: TierRegion, Difficulty: 3,
			Condition: RegionMaxPostsAtLeast{N: 30}, PointReward: 200,
		},
		BadgeDefinition{
			Name: BadgeCityAmbassador, Description: "50 posts in a single region", Icon: "🏙️",
			VisualTheme: "from-cyan-400 to-blue-600", Tier: TierRegion, Difficulty: 4,
			Condition: RegionMaxPostsAtLeast{N: 50}, PointReward: 300,
		},

		// category
		BadgeDefinition{
			Name: BadgeFoodie, Description: "20 food posts", Icon: "🍜",
			VisualTheme: "from-orange-400 to-red-500", Tier: TierCategory, Difficulty: 3,
			Condition: CategoryPostCountAtLeast{Category: models.CategoryFood, N: 20}, PointReward: 150,
		},
		BadgeDefinition{
			Name: BadgeBloomChaser, Description: "20 bloom posts", Icon: "🌸",
			VisualTheme: "from-pink-300 to-fuchsia-500", Tier: TierCategory, Difficulty: 3,
			Condition: CategoryPostCountAtLeast{Category: models.CategoryBloom, N: 20}, PointReward: 150,
		},
		BadgeDefinition{
			Name: BadgeLandmarkHunter, Description: "20 landmark posts", Icon: "🗼",
			VisualTheme: "from-slate-400 to-gray-600", Tier: TierCategory, Difficulty: 3,
			Condition: CategoryPostCountAtLeast{Category: models.CategoryLandmark, N: 20}, PointReward: 150,
		},
		BadgeDefinition{
			Name: BadgeScenicSeeker, Description: "20 scenic posts", Icon: "🏞️",
			VisualTheme: "from-emerald-400 to-sky-500", Tier: TierCategory, Difficulty: 3,
			Condition: CategoryPostCountAtLeast{Category: models.CategoryScenic, N: 20}, PointReward: 150,
		},

		BadgeDefinition{
			Name: BadgeFaithfulVisitor, Description: "Checked in 7 days in a row", Icon: "📅",
			VisualTheme: "from-indigo-300 to-blue-500", Tier: TierActivity, Difficulty: 2,
			Condition: ConsecutiveDaysAtLeast{N: 7}, PointReward: 100,
		},

		// hidden
		BadgeDefinition{
			Name: BadgeLuckyOne, Description: "One post got 100 likes!", Icon: "🍀",
			VisualTheme: "from-green-400 via-emerald-500 to-teal-600", Tier: TierHidden, Difficulty: 4, Hidden: true,
			Condition: SinglePostLikesAtLeast{N: 100}, PointReward: 300,
		},
		BadgeDefinition{
			Name: BadgeSpeedPoster, Description: "5 posts in one day!", Icon: "⚡",
			VisualTheme: "from-yellow-300 to-orange-500", Tier: TierHidden, Difficulty: 3, Hidden: true,
			Condition: DailyPostsAtLeast{N: 5}, PointReward: 200,
		},
		BadgeDefinition{
			Name: BadgeLegendaryTraveler, Description: "200 trips logged. You are a legend!", Icon: "🦄",
			VisualTheme: "from-pink-400 via-purple-500 to-indigo-600", Tier: TierHidden, Difficulty: 5, Hidden: true,
			Condition: PostCountAtLeast{N: 200}, PointReward: 500,
		},
		BadgeDefinition{
			Name: BadgeCityExplorer, Description: "20 posts in a single region", Icon: "🌃",
			VisualTheme: "from-indigo-400 to-purple-600", Tier: TierHidden, Difficulty: 3, Hidden: true,
			Condition: RegionMaxPostsAtLeast{N: 20}, PointReward: 200,
		},
	)
}
