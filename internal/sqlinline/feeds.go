package sqlinline

// QFeedCreateWithPosts inserts a layout and its nine placeholder posts in one
// statement. $6 carries the generation mode of each position.
const QFeedCreateWithPosts = `--sql f0837d85-6656-4936-98ed-2eedcf4a582d
with layout as (
    insert into feed_layouts (id, user_id, feed_style, fashion_style, status, custom_settings, locale, created_at, updated_at)
    values (gen_random_uuid(), $1::uuid, $2::text, nullif($3::text, ''), 'processing',
            coalesce($4::jsonb, '{}'::jsonb), nullif($5::text, ''), now(), now())
    returning id, user_id
),
posts as (
    insert into feed_posts (id, feed_layout_id, user_id, position, generation_mode, pro_mode_type, generation_status, updated_at)
    select gen_random_uuid(), l.id, l.user_id, p.position, ($6::text[])[p.position],
           case when ($6::text[])[p.position] = 'pro' then nullif($7::text, '') end,
           'pending', now()
    from layout l
    cross join generate_series(1, 9) as p(position)
    returning feed_layout_id
)
select id::text
from layout;
`

const QFeedSelectLayout = `--sql 174504b1-4cd9-4065-8ce9-109b8393d439
select
    id::text,
    user_id::text,
    feed_style,
    coalesce(fashion_style, ''),
    coalesce(template_key, ''),
    status,
    custom_settings,
    coalesce(locale, ''),
    coalesce(error_message, ''),
    created_at,
    updated_at
from feed_layouts
where id = $1::uuid
  and user_id = $2::uuid
limit 1;
`

const QFeedListPosts = `--sql bf11df90-77b3-4b1b-82dd-cbc53d503387
select
    id::text,
    feed_layout_id::text,
    user_id::text,
    position,
    generation_mode,
    coalesce(pro_mode_type, ''),
    coalesce(shot_type, ''),
    coalesce(prompt, ''),
    coalesce(caption, ''),
    generation_status,
    coalesce(prediction_id, ''),
    coalesce(image_url, ''),
    coalesce(error_message, ''),
    updated_at
from feed_posts
where feed_layout_id = $1::uuid
order by position asc;
`

const QFeedSavePostPrompt = `--sql 9ef0ed88-1946-4f05-ac04-c95d7ee2cda8
update feed_posts
set prompt = $3::text,
    shot_type = $4::text,
    updated_at = now()
where feed_layout_id = $1::uuid
  and position = $2::int;
`

const QFeedSavePostCaption = `--sql 7a10ff2f-ffa7-49c3-8ca1-fb3f9f078cae
update feed_posts
set caption = $2::text,
    updated_at = now()
where id = $1::uuid;
`

// QFeedClaimPost takes a post for one dispatcher pass. A claimed post is
// generating without a prediction id; a claim older than ten minutes is
// considered abandoned and may be taken again.
const QFeedClaimPost = `--sql 334ed6c0-202c-435c-ad8f-76049cddeaff
update feed_posts
set generation_status = 'generating',
    prediction_id = null,
    error_message = null,
    updated_at = now()
where id = $1::uuid
  and image_url is null
  and (
    generation_status <> 'generating'
    or (prediction_id is null and updated_at < now() - interval '10 minutes')
  )
returning id::text;
`

// QFeedReleasePost hands a claimed post back when its pass stops before
// submitting it.
const QFeedReleasePost = `--sql 18f542fe-9b22-45d3-a4b6-2be060f75a6a
update feed_posts
set generation_status = 'pending',
    updated_at = now()
where id = $1::uuid
  and generation_status = 'generating'
  and prediction_id is null;
`

const QFeedMarkPostGenerating = `--sql 8869c58e-2cd3-4121-8a9a-d34cbdd77d9a
update feed_posts
set generation_status = 'generating',
    prediction_id = $2::text,
    error_message = null,
    updated_at = now()
where id = $1::uuid
  and image_url is null;
`

const QFeedMarkPostFailed = `--sql b6f82402-5416-4769-8b3a-d33baaf5cd91
update feed_posts
set generation_status = 'failed',
    error_message = $2::text,
    updated_at = now()
where id = $1::uuid
  and image_url is null;
`

// QFeedCompletePrediction is idempotent: a post that already holds an image
// is left alone.
const QFeedCompletePrediction = `--sql 20de5a00-cb8e-4967-8de8-ad493921ba20
update feed_posts
set generation_status = 'succeeded',
    image_url = $2::text,
    error_message = null,
    updated_at = now()
where prediction_id = $1::text
  and image_url is null;
`

const QFeedFailPrediction = `--sql 1480e322-7d0a-4118-8643-03f43a9e1b81
update feed_posts
set generation_status = 'failed',
    error_message = $2::text,
    updated_at = now()
where prediction_id = $1::text
  and image_url is null
  and generation_status = 'generating';
`

const QFeedMarkLayoutReady = `--sql 2b3dbb5d-1851-4ba0-989e-8ed493a94aba
update feed_layouts
set status = 'ready',
    template_key = $2::text,
    error_message = null,
    updated_at = now()
where id = $1::uuid;
`

const QFeedMarkLayoutFailed = `--sql 738e628a-563e-4db5-8b33-77cc9b63dcae
update feed_layouts
set status = 'failed',
    error_message = $2::text,
    updated_at = now()
where id = $1::uuid;
`
