package engine

// DefaultRules returns the rule set installed at initialization, before any
// externally sourced rules are loaded. Hosts can remove or disable any of
// them through the registry operations.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "high-priority-alert",
			Name:        "High priority task alert",
			Description: "Notify when a high priority task is created",
			Trigger:     Trigger{Type: TriggerItemCreated},
			Conditions: []Condition{
				{Field: "task.priority", Operator: OperatorEquals, Value: String("high")},
			},
			Actions: []Action{
				{
					Type: ActionSendNotification,
					Parameters: map[string]Value{
						"message": String("High priority task created: {{task.title}}"),
					},
				},
			},
			Enabled: true,
		},
		{
			ID:          "overdue-notification",
			Name:        "Overdue task notification",
			Description: "Notify when a task passes its due date without being done",
			Trigger:     Trigger{Type: TriggerItemOverdue},
			Conditions: []Condition{
				{Field: "task.status", Operator: OperatorNotEquals, Value: String("done")},
			},
			Actions: []Action{
				{
					Type: ActionSendNotification,
					Parameters: map[string]Value{
						"message": String("Task overdue: {{task.title}} (due {{task.due}})"),
					},
				},
			},
			Enabled: true,
		},
		{
			ID:          "project-kickoff-note",
			Name:        "Project kickoff note",
			Description: "Create a kickoff note when a project starts",
			Trigger:     Trigger{Type: TriggerProjectStarted},
			Conditions: []Condition{
				{Field: "project.name", Operator: OperatorIsNotEmpty},
			},
			Actions: []Action{
				{
					Type: ActionCreateNote,
					Parameters: map[string]Value{
						"path":    String("Projects/{{project.name}}/Kickoff.md"),
						"content": String("# {{project.name}} kickoff\n\nStarted on {{date}}.\n"),
					},
				},
			},
			Enabled: true,
		},
		{
			ID:          "daily-digest",
			Name:        "Daily digest note",
			Description: "Create the daily digest note on the morning schedule",
			Trigger:     Trigger{Type: TriggerDailySchedule},
			Actions: []Action{
				{
					Type: ActionCreateNote,
					Parameters: map[string]Value{
						"path":    String("Digests/{{date}}.md"),
						"content": String("# Daily digest {{date}}\n"),
					},
				},
			},
			Enabled: true,
		},
		{
			ID:          "milestone-celebration",
			Name:        "Milestone reached notification",
			Description: "Notify when a milestone item is completed",
			Trigger:     Trigger{Type: TriggerMilestoneReached},
			Actions: []Action{
				{
					Type: ActionSendNotification,
					Parameters: map[string]Value{
						"message": String("Milestone reached: {{task.title}}"),
					},
				},
			},
			Enabled: true,
		},
	}
}
